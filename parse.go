package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Input is a parsed pair of input files.
type Input struct {
	Data        *DataSet
	Fingerprint uint64
	Warnings    []string
}

// LoadInput fetches and parses the preferences and courses files.
// Either may be a local path or an http(s) URL.
func LoadInput(preferencesFile, coursesFile string) (*Input, error) {
	prefsRaw, err := fetchFile(preferencesFile)
	if err != nil {
		return nil, err
	}
	coursesRaw, err := fetchFile(coursesFile)
	if err != nil {
		return nil, err
	}

	prefsLines, err := readCSV(preferencesFile, prefsRaw)
	if err != nil {
		return nil, err
	}
	coursesLines, err := readCSV(coursesFile, coursesRaw)
	if err != nil {
		return nil, err
	}

	data := NewDataSet()
	if err := data.ParsePreferences(preferencesFile, prefsLines); err != nil {
		return nil, err
	}
	warnings, err := data.ParseCourses(coursesFile, coursesLines)
	if err != nil {
		return nil, err
	}

	return &Input{
		Data:        data,
		Fingerprint: fingerprint(prefsRaw, coursesRaw),
		Warnings:    warnings,
	}, nil
}

func fetchFile(filename string) ([]byte, error) {
	if strings.HasPrefix(filename, "http:") || strings.HasPrefix(filename, "https:") {
		const docsSuffix = "/edit?usp=sharing"
		if strings.HasSuffix(filename, docsSuffix) {
			filename = filename[:len(filename)-len(docsSuffix)] + "/export?format=csv"
		}
		slog.Info("downloading input URL", "url", filename)
		res, err := http.Get(filename)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("downloading %s: %s", filename, res.Status)
		}
		return io.ReadAll(res.Body)
	}

	slog.Info("reading input file", "file", filename)
	return os.ReadFile(filename)
}

func readCSV(filename string, raw []byte) ([][]string, error) {
	// tolerate a UTF-8 byte order mark from spreadsheet exports
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	var lines [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%q: %w: %v", filename, ErrMalformedInput, err)
		}
		lines = append(lines, record)
	}
	return lines, nil
}

// ParsePreferences reads the preferences table: student, priority, then one rank column per course.
func (data *DataSet) ParsePreferences(filename string, lines [][]string) error {
	if len(lines) == 0 {
		return fmt.Errorf("%q: %w: empty file", filename, ErrMalformedInput)
	}
	header := lines[0]
	if len(header) < 3 {
		return fmt.Errorf("%q line 1: %w: expected %q", filename, ErrMalformedInput, "student,priority,course,course,...")
	}
	var columns []*Course
	for _, elt := range header[2:] {
		name := strings.TrimSpace(elt)
		if name == "" {
			return fmt.Errorf("%q line 1: %w: blank course name", filename, ErrMalformedInput)
		}
		if data.CourseByName[name] != nil {
			return fmt.Errorf("%q line 1: %w: found duplicate course %q", filename, ErrMalformedInput, name)
		}
		columns = append(columns, data.AddCourse(name))
	}

	for i, fields := range lines[1:] {
		linenumber := i + 2
		if isBlank(fields) {
			continue
		}
		if err := data.parseStudent(fields, columns); err != nil {
			return fmt.Errorf("%q line %d: %w", filename, linenumber, err)
		}
	}
	if len(data.Students) == 0 {
		return fmt.Errorf("%q: %w: no students found", filename, ErrMalformedInput)
	}
	return nil
}

func (data *DataSet) parseStudent(fields []string, columns []*Course) error {
	name := strings.TrimSpace(fields[0])
	if name == "" {
		return fmt.Errorf("%w: blank student identifier", ErrMalformedInput)
	}
	if data.StudentByName[name] != nil {
		return fmt.Errorf("%w: found duplicate student %q", ErrMalformedInput, name)
	}
	priority, err := parseInt(fields[1])
	if err != nil {
		return fmt.Errorf("%w: priority for %s: %v", ErrMalformedInput, name, err)
	}

	var prefs []Preference
	used := make(map[int]*Course)
	for col, course := range columns {
		s := strings.TrimSpace(fields[col+2])
		if s == "" {
			continue
		}
		rank, err := parseInt(s)
		if err != nil {
			return fmt.Errorf("%w: rank of %s for %s: %v", ErrMalformedInput, course.Name, name, err)
		}
		if rank < 1 {
			return fmt.Errorf("%w: rank of %s for %s must be >= 1", ErrMalformedInput, course.Name, name)
		}
		if other, present := used[rank]; present {
			return fmt.Errorf("%w: %s gives rank %d to both %s and %s",
				ErrMalformedInput, name, rank, other.Name, course.Name)
		}
		used[rank] = course
		prefs = append(prefs, Preference{Course: course, Rank: rank})
	}

	data.AddStudent(name, priority, prefs)
	return nil
}

// ParseCourses reads the course parameters table. Columns are found by header name:
// course, max_repeats, must_run, max_students. Every course in the preferences
// file must appear.
func (data *DataSet) ParseCourses(filename string, lines [][]string) ([]string, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%q: %w: empty file", filename, ErrMalformedInput)
	}
	index := map[string]int{"course": -1, "max_repeats": -1, "must_run": -1, "max_students": -1}
	for i, elt := range lines[0] {
		key := strings.ToLower(strings.TrimSpace(elt))
		if _, present := index[key]; present {
			index[key] = i
		}
	}
	if index["course"] < 0 {
		return nil, fmt.Errorf("%q line 1: %w: no %q column", filename, ErrMalformedInput, "course")
	}
	field := func(fields []string, key string) string {
		if index[key] < 0 {
			return ""
		}
		return strings.TrimSpace(fields[index[key]])
	}

	var warnings []string
	seen := make(map[*Course]bool)
	for i, fields := range lines[1:] {
		linenumber := i + 2
		if isBlank(fields) {
			continue
		}
		name := field(fields, "course")
		course := data.CourseByName[name]
		if course == nil {
			warnings = append(warnings, fmt.Sprintf("course %q in %s has no preference column and is ignored", name, filename))
			continue
		}
		if seen[course] {
			return nil, fmt.Errorf("%q line %d: %w: found duplicate course %q", filename, linenumber, ErrMalformedInput, name)
		}
		seen[course] = true

		var err error
		if course.MaxRepeats, err = parseLimit(field(fields, "max_repeats"), 0); err != nil {
			return nil, fmt.Errorf("%q line %d: max_repeats: %w", filename, linenumber, err)
		}
		if course.MaxStudents, err = parseLimit(field(fields, "max_students"), 1); err != nil {
			return nil, fmt.Errorf("%q line %d: max_students: %w", filename, linenumber, err)
		}
		switch field(fields, "must_run") {
		case "", "0":
			course.MustRun = false
		case "1":
			course.MustRun = true
		default:
			return nil, fmt.Errorf("%q line %d: %w: must_run must be 0 or 1", filename, linenumber, ErrMalformedInput)
		}
	}

	for _, course := range data.Courses {
		if !seen[course] {
			return nil, fmt.Errorf("%q: %w: %q has preferences but no course parameters", filename, ErrUnknownCourse, course.Name)
		}
	}
	return warnings, nil
}

// parseLimit parses an optional bound; blank means Unlimited.
func parseLimit(s string, lowest int) (int, error) {
	if s == "" {
		return Unlimited, nil
	}
	n, err := parseInt(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if n < lowest {
		return 0, fmt.Errorf("%w: %d must be >= %d", ErrMalformedInput, n, lowest)
	}
	return n, nil
}

// parseInt accepts integers, including the "3.0" form spreadsheets like to export.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("expected an integer but found %q", s)
	}
	return int(f), nil
}

func isBlank(fields []string) bool {
	for _, elt := range fields {
		if strings.TrimSpace(elt) != "" {
			return false
		}
	}
	return true
}
