package main

import (
	"fmt"
	"sort"
)

// A CourseInstance is one run of a shortlisted course.
type CourseInstance struct {
	ID       int
	Course   *Course
	Instance int

	// 1..n; 0 if the instance could not be placed
	Block int
}

// A Courselist is the output of the second stage.
type Courselist struct {
	Instances []*CourseInstance
	Blocks    int

	ByID     map[int]*CourseInstance
	ByCourse map[*Course][]*CourseInstance

	// co-preference counts between shortlisted courses
	Correlation map[*Course]map[*Course]int
	Warnings    []string
}

// Placed returns the instances of a course that have a block.
func (list *Courselist) Placed(course *Course) []*CourseInstance {
	var out []*CourseInstance
	for _, inst := range list.ByCourse[course] {
		if inst.Block > 0 {
			out = append(out, inst)
		}
	}
	return out
}

// Hosts reports whether an instance of course is placed in block.
func (list *Courselist) Hosts(course *Course, block int) bool {
	for _, inst := range list.ByCourse[course] {
		if inst.Block == block {
			return true
		}
	}
	return false
}

// ByBlock returns the instances ordered by block, then id.
func (list *Courselist) ByBlock() []*CourseInstance {
	out := make([]*CourseInstance, len(list.Instances))
	copy(out, list.Instances)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Block != out[b].Block {
			return out[a].Block < out[b].Block
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (list *Courselist) index() {
	list.ByID = make(map[int]*CourseInstance)
	list.ByCourse = make(map[*Course][]*CourseInstance)
	for _, inst := range list.Instances {
		list.ByID[inst.ID] = inst
		list.ByCourse[inst.Course] = append(list.ByCourse[inst.Course], inst)
	}
}

// Correlation counts, for every pair of courses in the set, the students who
// have both among their top nBlocks choices. Choices are ranked among the
// courses in the set only.
func (data *DataSet) Correlation(courses map[*Course]bool, nBlocks int) map[*Course]map[*Course]int {
	corr := make(map[*Course]map[*Course]int)
	for course := range courses {
		corr[course] = make(map[*Course]int)
	}
	for _, student := range data.Students {
		var top []*Course
		for _, pref := range student.Prefs {
			if len(top) == nBlocks {
				break
			}
			if courses[pref.Course] {
				top = append(top, pref.Course)
			}
		}
		for _, a := range top {
			for _, b := range top {
				if a != b {
					corr[a][b]++
				}
			}
		}
	}
	return corr
}

// PlaceBlocks expands the shortlist into course instances and spreads them
// over nBlocks blocks, keeping courses that many students want together
// out of the same block. Courses that run once are placed first, most
// popular first.
func (data *DataSet) PlaceBlocks(shortlist *Shortlist, nBlocks int) *Courselist {
	list := &Courselist{Blocks: nBlocks}

	order := make([]*ShortlistEntry, len(shortlist.Entries))
	copy(order, shortlist.Entries)
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].Repeats != order[b].Repeats {
			return order[a].Repeats < order[b].Repeats
		}
		return order[a].Rank < order[b].Rank
	})

	running := make(map[*Course]bool)
	for _, entry := range order {
		running[entry.Course] = true
		for i := 1; i <= entry.Instances(); i++ {
			list.Instances = append(list.Instances, &CourseInstance{
				ID:       len(list.Instances) + 1,
				Course:   entry.Course,
				Instance: i,
			})
		}
	}
	list.index()
	list.Correlation = data.Correlation(running, nBlocks)

	// courses already in each block
	placed := make([][]*Course, nBlocks+1)

	type candidate struct {
		block int
		sum   int
		count int
	}
	for _, entry := range order {
		corr := list.Correlation[entry.Course]
		candidates := make([]candidate, 0, nBlocks)
		for block := 1; block <= nBlocks; block++ {
			sum := 0
			for _, other := range placed[block] {
				sum += corr[other]
			}
			candidates = append(candidates, candidate{block: block, sum: sum, count: len(placed[block])})
		}
		sort.Slice(candidates, func(a, b int) bool {
			ca, cb := candidates[a], candidates[b]
			if ca.sum != cb.sum {
				return ca.sum < cb.sum
			}
			if ca.count != cb.count {
				return ca.count < cb.count
			}
			return ca.block < cb.block
		})

		instances := list.ByCourse[entry.Course]
		if len(instances) > nBlocks {
			list.Warnings = append(list.Warnings, fmt.Sprintf(
				"%s has %d instances but there are only %d blocks; %d instances are left unplaced",
				entry.Course.Name, len(instances), nBlocks, len(instances)-nBlocks))
		}
		for i, inst := range instances {
			if i >= nBlocks {
				break
			}
			inst.Block = candidates[i].block
			placed[inst.Block] = append(placed[inst.Block], entry.Course)
		}
	}

	return list
}
