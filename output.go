package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// WriteOutputs writes every CSV artifact and selections.json into dir.
func WriteOutputs(dir string, data *DataSet, result *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"longlist.csv", func(w io.Writer) error { return writeCSV(w, longlistRows(result.Shortlist)) }},
		{"shortlist.csv", func(w io.Writer) error { return writeCSV(w, shortlistRows(result.Shortlist)) }},
		{"courselist.csv", func(w io.Writer) error {
			return writeCSV(w, courselistRows(result.Courselist, result.Assignment))
		}},
		{"selections_by_student.csv", func(w io.Writer) error {
			return writeCSV(w, data.selectionsByStudentRows(result.Assignment))
		}},
		{"selections_by_course.csv", func(w io.Writer) error {
			return writeCSV(w, data.selectionsByCourseRows(result.Assignment))
		}},
		{"selections.json", func(w io.Writer) error { return data.WriteJSON(w, result) }},
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.write); err != nil {
			return err
		}
	}
	slog.Info("results written", "dir", dir, "files", len(files))
	return nil
}

// WriteShortlistOutputs writes only the first stage's artifacts.
func WriteShortlistOutputs(dir string, shortlist *Shortlist) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "longlist.csv"), func(w io.Writer) error {
		return writeCSV(w, longlistRows(shortlist))
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "shortlist.csv"), func(w io.Writer) error {
		return writeCSV(w, shortlistRows(shortlist))
	})
}

// writeFile writes to a temporary file and renames it into place.
func writeFile(filename string, write func(io.Writer) error) error {
	tmpFile := filename + ".tmp"
	fp, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpFile, err)
	}
	buf := bufio.NewWriter(fp)
	if err = write(buf); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", tmpFile, err)
	}
	if err = buf.Flush(); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", tmpFile, err)
	}
	if err = fp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpFile, err)
	}
	if err = os.Rename(tmpFile, filename); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpFile, filename, err)
	}
	return nil
}

func writeCSV(out io.Writer, rows [][]string) error {
	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func longlistRows(shortlist *Shortlist) [][]string {
	header := []string{"rank", "pop", "course"}
	for _, rank := range shortlist.Ranks {
		header = append(header, itoa(rank))
	}
	rows := [][]string{header}
	for _, entry := range shortlist.Longlist {
		row := []string{itoa(entry.Rank), itoa(entry.Popularity), entry.Course.Name}
		for _, n := range entry.Counts {
			row = append(row, itoa(n))
		}
		rows = append(rows, row)
	}
	return rows
}

func shortlistRows(shortlist *Shortlist) [][]string {
	rows := [][]string{{"rank", "course", "repeats", "pop", "comparison_number"}}
	for _, entry := range shortlist.Entries {
		rows = append(rows, []string{
			itoa(entry.Rank),
			entry.Course.Name,
			itoa(entry.Repeats),
			itoa(entry.Popularity),
			strconv.FormatFloat(entry.Comparison(), 'f', 3, 64),
		})
	}
	return rows
}

func courselistRows(list *Courselist, a *Assignment) [][]string {
	rows := [][]string{{"id", "course", "instance", "block", "students"}}
	for _, inst := range list.ByBlock() {
		block := ""
		if inst.Block > 0 {
			block = itoa(inst.Block)
		}
		rows = append(rows, []string{
			itoa(inst.ID),
			inst.Course.Name,
			itoa(inst.Instance),
			block,
			itoa(a.Enrolled[inst]),
		})
	}
	return rows
}

// A SelectionRecord is one filled or unfilled slot of one student.
type SelectionRecord struct {
	Student  *Student
	Slot     int
	Instance *CourseInstance
	Rank     int
}

// Records lists every slot of every student in student order, then block order.
// Unassigned slots come last for each student.
func (data *DataSet) Records(a *Assignment) []SelectionRecord {
	var out []SelectionRecord
	for _, student := range data.Students {
		var mine []SelectionRecord
		for s, inst := range a.Selected[student.Position] {
			record := SelectionRecord{Student: student, Slot: s + 1, Instance: inst}
			if inst != nil {
				record.Rank = student.RankOf(inst.Course)
			}
			mine = append(mine, record)
		}
		sort.SliceStable(mine, func(i, j int) bool {
			bi, bj := recordBlock(mine[i]), recordBlock(mine[j])
			return bi < bj
		})
		out = append(out, mine...)
	}
	return out
}

func recordBlock(record SelectionRecord) int {
	if record.Instance == nil {
		return math.MaxInt
	}
	return record.Instance.Block
}

func (data *DataSet) selectionsByStudentRows(a *Assignment) [][]string {
	rows := [][]string{{"student", "slot", "courseid", "course", "block", "preference"}}
	for _, record := range data.Records(a) {
		if record.Instance == nil {
			rows = append(rows, []string{record.Student.Name, itoa(record.Slot), "", "", "", ""})
			continue
		}
		rows = append(rows, []string{
			record.Student.Name,
			itoa(record.Slot),
			itoa(record.Instance.ID),
			record.Instance.Course.Name,
			itoa(record.Instance.Block),
			itoa(record.Rank),
		})
	}
	return rows
}

func (data *DataSet) selectionsByCourseRows(a *Assignment) [][]string {
	var records []SelectionRecord
	for _, record := range data.Records(a) {
		if record.Instance != nil {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		ci, cj := records[i].Instance.Course, records[j].Instance.Course
		if ci != cj {
			return ci.Name < cj.Name
		}
		return records[i].Instance.Block < records[j].Instance.Block
	})

	rows := [][]string{{"course", "block", "courseid", "student"}}
	for _, record := range records {
		rows = append(rows, []string{
			record.Instance.Course.Name,
			itoa(record.Instance.Block),
			itoa(record.Instance.ID),
			record.Student.Name,
		})
	}
	return rows
}
