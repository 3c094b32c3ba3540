package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorrelation(t *testing.T) {
	data := loadData(t, `student,priority,A,B,C
S1,0,1,2,3
S2,0,3,1,2
S3,0,1,,2
`, "course\nA\nB\nC\n")
	a, b, c := data.CourseByName["A"], data.CourseByName["B"], data.CourseByName["C"]

	corr := data.Correlation(map[*Course]bool{a: true, b: true, c: true}, 2)
	require.Equal(t, 1, corr[a][b])
	require.Equal(t, 1, corr[b][a])
	require.Equal(t, 1, corr[b][c])
	require.Equal(t, 1, corr[a][c])
	require.Zero(t, corr[a][a])

	// ranks are recomputed among the courses in the set
	corr = data.Correlation(map[*Course]bool{a: true, c: true}, 2)
	require.Equal(t, 3, corr[a][c])
}

func TestPlaceBlocks_Example(t *testing.T) {
	data := loadData(t, examplePreferences, exampleCourses)
	shortlist := data.MakeShortlist(2, 2)

	list := data.PlaceBlocks(shortlist, 2)
	require.Len(t, list.Instances, 2)
	require.Empty(t, list.Warnings)

	a, b := data.CourseByName["A"], data.CourseByName["B"]
	require.Equal(t, 3, list.Correlation[a][b])
	require.Equal(t, 1, list.ByCourse[a][0].Block)
	require.Equal(t, 2, list.ByCourse[b][0].Block)
	require.Equal(t, 1, list.ByCourse[a][0].ID)
	require.Equal(t, 2, list.ByCourse[b][0].ID)
	require.True(t, list.Hosts(a, 1))
	require.False(t, list.Hosts(a, 2))
}

func TestPlaceBlocks_Repeats(t *testing.T) {
	data := popularData(t, "course\nA\nB\nC\n")
	shortlist := data.MakeShortlist(3, 2)

	list := data.PlaceBlocks(shortlist, 2)
	a, b := data.CourseByName["A"], data.CourseByName["B"]

	// single runs are placed and numbered first
	require.Equal(t, 1, list.ByCourse[b][0].ID)
	require.Equal(t, []int{2, 3}, []int{list.ByCourse[a][0].ID, list.ByCourse[a][1].ID})

	blocks := map[int]bool{}
	for _, inst := range list.ByCourse[a] {
		blocks[inst.Block] = true
	}
	require.Equal(t, map[int]bool{1: true, 2: true}, blocks)
	require.Len(t, list.Placed(a), 2)

	byBlock := list.ByBlock()
	require.Equal(t, 1, byBlock[0].Block)
	require.Equal(t, 2, byBlock[len(byBlock)-1].Block)
}

func TestPlaceBlocks_SeparatesConflicts(t *testing.T) {
	// everyone wants A and B together, nobody pairs C with D
	data := loadData(t, `student,priority,A,B,C,D
S1,0,1,2,,
S2,0,2,1,,
S3,0,1,2,,
S4,0,,,1,
S5,0,,,,1
`, "course,max_repeats\nA,1\nB,1\nC,1\nD,1\n")
	shortlist := data.MakeShortlist(4, 2)
	list := data.PlaceBlocks(shortlist, 2)

	a, b := data.CourseByName["A"], data.CourseByName["B"]
	require.NotEqual(t, list.ByCourse[a][0].Block, list.ByCourse[b][0].Block)
	for _, inst := range list.Instances {
		require.NotZero(t, inst.Block)
	}
}

func TestPlaceBlocks_TooManyInstances(t *testing.T) {
	data := loadData(t, examplePreferences, "course\nA\nB\n")
	shortlist := &Shortlist{
		Blocks: 2,
		Entries: []*ShortlistEntry{
			{Course: data.CourseByName["A"], Rank: 1, Popularity: 3, Repeats: 2},
		},
	}

	list := data.PlaceBlocks(shortlist, 2)
	require.Len(t, list.Instances, 3)
	require.Len(t, list.Placed(data.CourseByName["A"]), 2)
	require.Zero(t, list.Instances[2].Block)
	require.Len(t, list.Warnings, 1)
}
