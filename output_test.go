package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func readOutputCSV(t *testing.T, dir, name string) [][]string {
	t.Helper()
	fp, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer fp.Close()
	rows, err := csv.NewReader(fp).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteOutputs(t *testing.T) {
	input, result := exampleResult(t)
	dir := filepath.Join(t.TempDir(), "example")

	require.NoError(t, WriteOutputs(dir, input.Data, result))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	require.ElementsMatch(t, []string{
		"longlist.csv",
		"shortlist.csv",
		"courselist.csv",
		"selections_by_student.csv",
		"selections_by_course.csv",
		"selections.json",
	}, names)

	longlist := readOutputCSV(t, dir, "longlist.csv")
	require.Equal(t, []string{"rank", "pop", "course", "1", "2", "3"}, longlist[0])
	require.Equal(t, []string{"1", "3", "A", "2", "1", "0"}, longlist[1])

	shortlist := readOutputCSV(t, dir, "shortlist.csv")
	require.Equal(t, []string{"rank", "course", "repeats", "pop", "comparison_number"}, shortlist[0])
	require.Equal(t, []string{"1", "A", "0", "3", "3.000"}, shortlist[1])

	courselist := readOutputCSV(t, dir, "courselist.csv")
	require.Equal(t, [][]string{
		{"id", "course", "instance", "block", "students"},
		{"1", "A", "1", "1", "1"},
		{"2", "B", "1", "2", "2"},
	}, courselist)

	byStudent := readOutputCSV(t, dir, "selections_by_student.csv")
	require.Equal(t, []string{"student", "slot", "courseid", "course", "block", "preference"}, byStudent[0])
	require.Len(t, byStudent, 7)
	require.Equal(t, "S3", byStudent[5][0])
	require.Equal(t, []string{"S3", "1", "2", "B", "2", "1"}, byStudent[5])
	require.Equal(t, []string{"S3", "2", "", "", "", ""}, byStudent[6])

	byCourse := readOutputCSV(t, dir, "selections_by_course.csv")
	require.Equal(t, []string{"course", "block", "courseid", "student"}, byCourse[0])
	require.Len(t, byCourse, 4)
	require.Equal(t, "A", byCourse[1][0])
	require.Equal(t, "B", byCourse[2][0])
	require.Equal(t, "B", byCourse[3][0])
}

func TestRecords_OrderedByBlock(t *testing.T) {
	data := loadData(t, `student,priority,A,B
S1,0,2,1
`, "course,max_repeats\nA,1\nB,1\n")
	list := data.PlaceBlocks(data.MakeShortlist(2, 2), 2)
	a := data.AssignStudents(list, 2, newTestRand(1))

	// B is the first choice but A sits in the earlier block
	records := data.Records(a)
	require.Len(t, records, 2)
	require.Equal(t, "A", records[0].Instance.Course.Name)
	require.Equal(t, 2, records[0].Slot)
	require.Equal(t, 2, records[0].Rank)
	require.Equal(t, "B", records[1].Instance.Course.Name)
}

func TestWriteShortlistOutputs(t *testing.T) {
	data := loadData(t, examplePreferences, exampleCourses)
	dir := t.TempDir()

	require.NoError(t, WriteShortlistOutputs(dir, data.MakeShortlist(2, 2)))
	require.FileExists(t, filepath.Join(dir, "longlist.csv"))
	require.FileExists(t, filepath.Join(dir, "shortlist.csv"))
	require.NoFileExists(t, filepath.Join(dir, "shortlist.csv.tmp"))
}
