package main

import (
	"fmt"
	"sort"
)

// A LonglistEntry ranks one course by popularity among every course in the input.
type LonglistEntry struct {
	Course     *Course
	Rank       int
	Popularity int

	// Counts[i] is the number of students ranking the course at Ranks[i]
	// of the shortlist
	Counts []int
}

// A ShortlistEntry is a course selected to run, possibly more than once.
type ShortlistEntry struct {
	Course     *Course
	Rank       int
	Popularity int

	// additional instances beyond the first
	Repeats int
}

// Instances is the number of times the course runs.
func (entry *ShortlistEntry) Instances() int {
	return entry.Repeats + 1
}

// Comparison is the popularity per instance, used to decide which courses deserve a repeat.
func (entry *ShortlistEntry) Comparison() float64 {
	return float64(entry.Popularity) / float64(entry.Repeats+1)
}

// A Shortlist is the output of the first stage.
type Shortlist struct {
	Longlist []LonglistEntry
	Ranks    []int
	Entries  []*ShortlistEntry
	Blocks   int
	Warnings []string
}

// Size is the number of course instances on the shortlist.
func (shortlist *Shortlist) Size() int {
	size := 0
	for _, entry := range shortlist.Entries {
		size += entry.Instances()
	}
	return size
}

func (shortlist *Shortlist) warn(format string, args ...any) {
	shortlist.Warnings = append(shortlist.Warnings, fmt.Sprintf(format, args...))
}

// Longlist ranks every course by the number of students who placed it
// among their top nBlocks preferences. Ties keep input order. Counts are
// indexed by position in ranks, which must be data.Ranks().
func (data *DataSet) Longlist(nBlocks int, ranks []int) []LonglistEntry {
	column := make(map[int]int, len(ranks))
	for i, rank := range ranks {
		column[rank] = i
	}
	entries := make([]LonglistEntry, len(data.Courses))
	for i, course := range data.Courses {
		entries[i] = LonglistEntry{Course: course, Counts: make([]int, len(ranks))}
	}
	for _, student := range data.Students {
		for _, pref := range student.Prefs {
			entry := &entries[pref.Course.Position]
			entry.Counts[column[pref.Rank]]++
			if pref.Rank <= nBlocks {
				entry.Popularity++
			}
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Popularity > entries[b].Popularity
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// MakeShortlist picks the courses to run so that the total number of
// instances is size. Popular courses may be repeated, but never more than
// the course allows or more than there are blocks to hold the instances.
func (data *DataSet) MakeShortlist(size, nBlocks int) *Shortlist {
	ranks := data.Ranks()
	shortlist := &Shortlist{
		Longlist: data.Longlist(nBlocks, ranks),
		Ranks:    ranks,
		Blocks:   nBlocks,
	}

	// forced removals
	var entries []*ShortlistEntry
	for _, elt := range shortlist.Longlist {
		if elt.Course.MaxRepeats == 0 {
			if elt.Course.MustRun {
				shortlist.warn("%s is marked must-run but has max_repeats 0; it will not run", elt.Course.Name)
			}
			continue
		}
		entries = append(entries, &ShortlistEntry{
			Course:     elt.Course,
			Rank:       elt.Rank,
			Popularity: elt.Popularity,
		})
	}

	// must runs go to the top, otherwise keep rank order
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Course.MustRun && !entries[b].Course.MustRun
	})

	canRepeat := func(entry *ShortlistEntry) bool {
		next := entry.Instances() + 1
		return entry.Course.CanRun(next) && next <= nBlocks
	}

	if len(entries) > size {
		keep := size
		mustRuns := 0
		for _, entry := range entries {
			if entry.Course.MustRun {
				mustRuns++
			}
		}
		if mustRuns > keep {
			shortlist.warn("%d must-run courses exceed the shortlist size of %d; keeping all of them", mustRuns, size)
			keep = mustRuns
		}
		entries = entries[:keep]
	} else {
		// repeat courses from the top until the target is met
		missing := size - len(entries)
		for missing > 0 {
			added := false
			for _, entry := range entries {
				if missing == 0 {
					break
				}
				if canRepeat(entry) {
					entry.Repeats++
					missing--
					added = true
				}
			}
			if !added {
				shortlist.warn("shortlist has %d course instances but %d were requested; no course can be repeated further",
					size-missing, size)
				break
			}
		}
	}

	entries = balanceRepeats(entries, canRepeat, shortlist)

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Rank < entries[b].Rank
	})
	shortlist.Entries = entries
	return shortlist
}

// balanceRepeats repeats a course while its popularity per instance still beats the
// least popular course on the list. The extra instance is taken from that least
// popular course, so the number of instances does not change.
func balanceRepeats(entries []*ShortlistEntry, canRepeat func(*ShortlistEntry) bool, shortlist *Shortlist) []*ShortlistEntry {
	limit := 0
	for _, entry := range entries {
		limit += entry.Instances()
	}

	for iteration := 0; ; iteration++ {
		if iteration >= limit {
			shortlist.warn("repeat balancing stopped after %d moves", limit)
			break
		}

		// must runs stay pinned above the comparison order
		sort.SliceStable(entries, func(a, b int) bool {
			ea, eb := entries[a], entries[b]
			if ea.Course.MustRun != eb.Course.MustRun {
				return ea.Course.MustRun
			}
			if ea.Comparison() != eb.Comparison() {
				return ea.Comparison() > eb.Comparison()
			}
			return ea.Rank < eb.Rank
		})

		// the least popular course that may give up an instance
		victim := -1
		for i, entry := range entries {
			if entry.Course.MustRun {
				continue
			}
			if victim < 0 ||
				entry.Popularity < entries[victim].Popularity ||
				entry.Popularity == entries[victim].Popularity && entry.Rank > entries[victim].Rank {
				victim = i
			}
		}
		if victim < 0 {
			break
		}
		lowest := float64(entries[victim].Popularity)

		var top *ShortlistEntry
		for i, entry := range entries {
			if i != victim && entry.Comparison() > lowest && canRepeat(entry) {
				top = entry
				break
			}
		}
		if top == nil {
			break
		}

		top.Repeats++
		if entries[victim].Repeats > 0 {
			entries[victim].Repeats--
		} else {
			entries = append(entries[:victim], entries[victim+1:]...)
		}
	}
	return entries
}
