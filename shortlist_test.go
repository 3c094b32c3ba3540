package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// popularData gives A ten first choices and B and C one each.
func popularData(t *testing.T, courses string) *DataSet {
	t.Helper()
	var prefs strings.Builder
	prefs.WriteString("student,priority,A,B,C\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&prefs, "A%d,0,1,,\n", i)
	}
	prefs.WriteString("B1,0,,1,\n")
	prefs.WriteString("C1,0,,,1\n")
	return loadData(t, prefs.String(), courses)
}

func shortlistSummary(shortlist *Shortlist) map[string]int {
	out := make(map[string]int)
	for _, entry := range shortlist.Entries {
		out[entry.Course.Name] = entry.Instances()
	}
	return out
}

func TestLonglist(t *testing.T) {
	data := loadData(t, examplePreferences, exampleCourses)

	ranks := data.Ranks()
	require.Equal(t, []int{1, 2, 3}, ranks)
	longlist := data.Longlist(2, ranks)
	require.Len(t, longlist, 2)

	require.Equal(t, "A", longlist[0].Course.Name)
	require.Equal(t, 1, longlist[0].Rank)
	require.Equal(t, 3, longlist[0].Popularity)
	require.Equal(t, []int{2, 1, 0}, longlist[0].Counts)

	require.Equal(t, "B", longlist[1].Course.Name)
	require.Equal(t, 2, longlist[1].Popularity)
	require.Equal(t, []int{1, 1, 1}, longlist[1].Counts)

	// only first choices count with one block
	require.Equal(t, 1, data.Longlist(1, ranks)[1].Popularity)
}

func TestLonglist_SparseRanks(t *testing.T) {
	data := loadData(t, `student,priority,A,B,C
S1,0,1,1000000000000000,
S2,0,,7,1
`, "course\nA\nB\nC\n")

	var shortlist *Shortlist
	require.NotPanics(t, func() { shortlist = data.MakeShortlist(2, 2) })
	require.Equal(t, []int{1, 7, 1000000000000000}, shortlist.Ranks)

	counts := make(map[string][]int)
	for _, entry := range shortlist.Longlist {
		counts[entry.Course.Name] = entry.Counts
	}
	require.Equal(t, []int{1, 0, 0}, counts["A"])
	require.Equal(t, []int{0, 1, 1}, counts["B"])
	require.Equal(t, []int{1, 0, 0}, counts["C"])

	rows := longlistRows(shortlist)
	require.Equal(t, []string{"rank", "pop", "course", "1", "7", "1000000000000000"}, rows[0])
	require.Len(t, rows, 4)
}

func TestMakeShortlist_Example(t *testing.T) {
	data := loadData(t, examplePreferences, exampleCourses)

	shortlist := data.MakeShortlist(2, 2)
	require.Equal(t, map[string]int{"A": 1, "B": 1}, shortlistSummary(shortlist))
	require.Equal(t, 2, shortlist.Size())
	require.Empty(t, shortlist.Warnings)
	require.Equal(t, "A", shortlist.Entries[0].Course.Name)
	require.InDelta(t, 3.0, shortlist.Entries[0].Comparison(), 1e-9)
}

func TestMakeShortlist_ForcedRemoval(t *testing.T) {
	data := popularData(t, "course,max_repeats\nA,0\nB,\nC,\n")

	shortlist := data.MakeShortlist(2, 2)
	summary := shortlistSummary(shortlist)
	require.NotContains(t, summary, "A")
	require.Equal(t, 2, shortlist.Size())
	require.Empty(t, shortlist.Warnings)

	t.Run("must-run with no runs allowed", func(t *testing.T) {
		data := popularData(t, "course,max_repeats,must_run\nA,0,1\nB,,\nC,,\n")
		shortlist := data.MakeShortlist(2, 2)
		require.NotContains(t, shortlistSummary(shortlist), "A")
		require.Len(t, shortlist.Warnings, 1)
		require.Contains(t, shortlist.Warnings[0], "A is marked must-run")
	})
}

func TestMakeShortlist_MustRun(t *testing.T) {
	t.Run("kept despite rank", func(t *testing.T) {
		data := popularData(t, "course,must_run\nA,0\nB,0\nC,1\n")
		shortlist := data.MakeShortlist(1, 1)
		require.Equal(t, map[string]int{"C": 1}, shortlistSummary(shortlist))
		require.Empty(t, shortlist.Warnings)
	})

	t.Run("more must-runs than size", func(t *testing.T) {
		data := popularData(t, "course,must_run\nA,0\nB,1\nC,1\n")
		shortlist := data.MakeShortlist(1, 1)
		require.Equal(t, map[string]int{"B": 1, "C": 1}, shortlistSummary(shortlist))
		require.Len(t, shortlist.Warnings, 1)
	})

	t.Run("never given up in balancing", func(t *testing.T) {
		data := popularData(t, "course,must_run\nA,0\nB,1\nC,1\n")
		shortlist := data.MakeShortlist(3, 2)
		summary := shortlistSummary(shortlist)
		require.Equal(t, 1, summary["B"])
		require.Equal(t, 1, summary["C"])
		require.Equal(t, 1, summary["A"])
	})
}

func TestMakeShortlist_Duplication(t *testing.T) {
	t.Run("fills to size", func(t *testing.T) {
		data := popularData(t, "course\nA\nB\nC\n")
		shortlist := data.MakeShortlist(6, 2)
		require.Equal(t, map[string]int{"A": 2, "B": 2, "C": 2}, shortlistSummary(shortlist))
		require.Empty(t, shortlist.Warnings)
	})

	t.Run("respects repeat limit", func(t *testing.T) {
		data := popularData(t, "course,max_repeats\nA,1\nB,\nC,\n")
		shortlist := data.MakeShortlist(5, 2)
		require.Equal(t, map[string]int{"A": 1, "B": 2, "C": 2}, shortlistSummary(shortlist))
	})

	t.Run("stops when nothing can repeat", func(t *testing.T) {
		data := popularData(t, "course,max_repeats\nA,1\nB,1\nC,2\n")
		shortlist := data.MakeShortlist(6, 3)
		require.Equal(t, 4, shortlist.Size())
		require.Len(t, shortlist.Warnings, 1)
	})
}

func TestMakeShortlist_Balancing(t *testing.T) {
	t.Run("popular course takes an instance", func(t *testing.T) {
		data := popularData(t, "course\nA\nB\nC\n")
		shortlist := data.MakeShortlist(3, 2)
		require.Equal(t, map[string]int{"A": 2, "B": 1}, shortlistSummary(shortlist))
		require.Equal(t, 3, shortlist.Size())
		require.Equal(t, "A", shortlist.Entries[0].Course.Name)
	})

	t.Run("repeat limit blocks balancing", func(t *testing.T) {
		data := popularData(t, "course,max_repeats\nA,1\nB,\nC,\n")
		shortlist := data.MakeShortlist(3, 2)
		require.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, shortlistSummary(shortlist))
	})

	t.Run("one block allows no repeats", func(t *testing.T) {
		data := popularData(t, "course\nA\nB\nC\n")
		shortlist := data.MakeShortlist(3, 1)
		require.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, shortlistSummary(shortlist))
	})
}

func TestMakeShortlist_Invariants(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := newTestRand(seed)
		data := randomData(rng, 40, 10)
		size, blocks := 3+rng.Intn(10), 1+rng.Intn(4)

		shortlist := data.MakeShortlist(size, blocks)
		for _, entry := range shortlist.Entries {
			require.NotZero(t, entry.Course.MaxRepeats, "seed %d", seed)
			require.True(t, entry.Course.CanRun(entry.Instances()), "seed %d: %s", seed, entry.Course.Name)
			require.LessOrEqual(t, entry.Instances(), blocks, "seed %d", seed)
		}
		for _, course := range data.Courses {
			if course.MustRun && course.MaxRepeats != 0 {
				require.Contains(t, shortlistSummary(shortlist), course.Name, "seed %d", seed)
			}
		}
		for i := 1; i < len(shortlist.Entries); i++ {
			require.Less(t, shortlist.Entries[i-1].Rank, shortlist.Entries[i].Rank)
		}
	}
}
