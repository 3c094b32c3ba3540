package main

import "errors"

var (
	// ErrMalformedInput indicates an input file could not be parsed.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnknownCourse indicates a preference column names a course with no course parameters.
	ErrUnknownCourse = errors.New("unknown course")

	// ErrInvalidConfig indicates a run parameter is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoResult indicates a saved selections file does not match the inputs.
	ErrNoResult = errors.New("selections do not match input")
)
