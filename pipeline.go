package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Params are the sizes and seed of one allocation run.
type Params struct {
	ShortlistSize int
	Blocks        int
	Slots         int
	Seed          int64
}

// A Result holds every stage's output for one run.
type Result struct {
	RunID  uuid.UUID
	Params Params

	Shortlist  *Shortlist
	Courselist *Courselist
	Assignment *Assignment

	warnings []string
}

// Warnings gathers the configuration warnings of all stages.
func (result *Result) Warnings() []string {
	out := append([]string(nil), result.warnings...)
	out = append(out, result.Shortlist.Warnings...)
	out = append(out, result.Courselist.Warnings...)
	return out
}

// Run executes the three stages in order. Nothing in it depends on ambient
// entropy: the same data, params, and seed always yield the same result.
func Run(input *Input, params Params) *Result {
	data := input.Data
	result := &Result{
		RunID:  runID(input.Fingerprint, params),
		Params: params,
	}
	if params.Slots > params.Blocks {
		result.warnings = append(result.warnings, fmt.Sprintf(
			"%d slots per student but only %d blocks; at most %d slots can be filled",
			params.Slots, params.Blocks, params.Blocks))
	}

	slog.Info("making shortlist", "size", params.ShortlistSize, "blocks", params.Blocks)
	result.Shortlist = data.MakeShortlist(params.ShortlistSize, params.Blocks)
	slog.Debug("shortlist ready", "courses", len(result.Shortlist.Entries), "instances", result.Shortlist.Size())

	slog.Info("placing courses in blocks", "blocks", params.Blocks)
	result.Courselist = data.PlaceBlocks(result.Shortlist, params.Blocks)

	slog.Info("assigning students", "students", len(data.Students), "slots", params.Slots, "seed", params.Seed)
	rng := rand.New(rand.NewSource(params.Seed))
	result.Assignment = data.AssignStudents(result.Courselist, params.Slots, rng)
	slog.Info("assignment finished",
		"filled", result.Assignment.Filled(),
		"requested", len(data.Students)*params.Slots)

	return result
}

// fingerprint hashes the raw input files.
func fingerprint(files ...[]byte) uint64 {
	h := xxh3.New()
	var size [8]byte
	for _, raw := range files {
		binary.LittleEndian.PutUint64(size[:], uint64(len(raw)))
		h.Write(size[:])
		h.Write(raw)
	}
	return h.Sum64()
}

// DefaultSeed derives a seed from the input fingerprint so that unseeded
// runs are still reproducible.
func DefaultSeed(fp uint64) int64 {
	return int64(fp & (1<<63 - 1))
}

// runID names a run by its inputs and parameters; identical runs share an id.
func runID(fp uint64, params Params) uuid.UUID {
	name := fmt.Sprintf("%016x/%d/%d/%d/%d", fp, params.ShortlistSize, params.Blocks, params.Slots, params.Seed)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}
