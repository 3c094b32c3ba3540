package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Impossible is the severity of a broken hard constraint.
const Impossible int = 1000000

// A Problem is one finding of the checker.
type Problem struct {
	Message  string
	Severity int
}

// A Report summarizes an allocation and lists everything wrong with it.
type Report struct {
	Problems []Problem
	Badness  int

	// assigned seats in each block
	BlockSeats map[int]int

	// HighestUsed[p] is the number of students whose worst assigned preference
	// rank is p; p == 0 counts students who got nothing
	HighestUsed map[int]int

	// Unassigned[s-1] is the number of students with nothing in slot s
	Unassigned []int
}

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	problemColor = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func (r *Report) add(severity int, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{Message: fmt.Sprintf(format, args...), Severity: severity})
}

// Check verifies a course list and an assignment against every constraint
// the allocation promises: block exclusivity, capacity, repeat limits,
// distinct blocks per course, and that a failed slot ends a student's run.
func (data *DataSet) Check(list *Courselist, a *Assignment) *Report {
	r := &Report{
		BlockSeats:  make(map[int]int),
		HighestUsed: make(map[int]int),
		Unassigned:  make([]int, a.Slots),
	}

	// course instances
	for _, course := range data.Courses {
		instances := list.ByCourse[course]
		if len(instances) == 0 {
			continue
		}
		if !course.CanRun(len(instances)) {
			r.add(Impossible, "repeat limit: %s runs %d times but may run at most %d",
				course.Name, len(instances), course.MaxRepeats)
		}
		blocks := make(map[int]int)
		for _, inst := range instances {
			switch {
			case inst.Block == 0:
				r.add(1, "unplaced instance: %s #%d (id %d) has no block", course.Name, inst.Instance, inst.ID)
				continue
			case inst.Block < 0 || inst.Block > list.Blocks:
				r.add(Impossible, "bad block: %s #%d (id %d) is in block %d of %d",
					course.Name, inst.Instance, inst.ID, inst.Block, list.Blocks)
			}
			if other, present := blocks[inst.Block]; present {
				r.add(Impossible, "course repeated in block: %s ids %d and %d are both in block %d",
					course.Name, other, inst.ID, inst.Block)
			}
			blocks[inst.Block] = inst.ID
		}
	}

	// students
	enrolled := make(map[*CourseInstance]int)
	for _, student := range data.Students {
		slots := a.Selected[student.Position]
		used := make(map[int]*CourseInstance)
		failed := 0
		worst := 0
		for s, inst := range slots {
			slot := s + 1
			if inst == nil {
				r.Unassigned[s]++
				if failed == 0 {
					failed = slot
				}
				continue
			}
			if failed > 0 {
				r.add(Impossible, "failure propagation: %s has nothing in slot %d but %s in slot %d",
					student.Name, failed, inst.Course.Name, slot)
			}
			enrolled[inst]++
			r.BlockSeats[inst.Block]++

			if inst.Block == 0 {
				r.add(Impossible, "unplaced selection: %s was given %s (id %d) which has no block",
					student.Name, inst.Course.Name, inst.ID)
			} else if other, present := used[inst.Block]; present {
				r.add(Impossible, "block exclusivity: %s has %s and %s in block %d",
					student.Name, other.Course.Name, inst.Course.Name, inst.Block)
			} else {
				used[inst.Block] = inst
			}

			rank := student.RankOf(inst.Course)
			if rank == 0 {
				r.add(Impossible, "unranked course: %s was given %s without ranking it", student.Name, inst.Course.Name)
			}
			if rank > worst {
				worst = rank
			}
		}
		r.HighestUsed[worst]++
	}

	// capacity
	for _, inst := range list.Instances {
		n := enrolled[inst]
		if !inst.Course.HasRoom(n - 1) {
			r.add(Impossible, "capacity: %s #%d (id %d) has %d students but room for %d",
				inst.Course.Name, inst.Instance, inst.ID, n, inst.Course.MaxStudents)
		}
	}

	sort.Slice(r.Problems, func(i, j int) bool {
		if r.Problems[i].Severity != r.Problems[j].Severity {
			return r.Problems[i].Severity > r.Problems[j].Severity
		}
		return r.Problems[i].Message < r.Problems[j].Message
	})
	for _, problem := range r.Problems {
		r.AddBadness(problem.Severity)
	}
	return r
}

// AddBadness adds a problem's severity; anything outside 0..99 counts as Impossible.
func (r *Report) AddBadness(badness int) {
	if badness >= 0 && badness < 100 {
		r.Badness += badness
	} else {
		r.Badness += Impossible
	}
}

// OK reports whether no hard constraint is broken.
func (r *Report) OK() bool {
	return r.Badness < Impossible
}

// PrintReport writes the blocks with their enrolment, the preference summary,
// any warnings, and the checker's problems.
func (data *DataSet) PrintReport(out io.Writer, list *Courselist, a *Assignment, r *Report, warnings []string) {
	nameLen := 0
	for _, inst := range list.Instances {
		if n := len(instanceLabel(inst)); n > nameLen {
			nameLen = n
		}
	}
	hyphens := strings.Repeat("-", nameLen+12)

	headerColor.Fprintln(out, "Blocks:")
	byBlock := make(map[int][]*CourseInstance)
	for _, inst := range list.ByBlock() {
		byBlock[inst.Block] = append(byBlock[inst.Block], inst)
	}
	for block := 0; block <= list.Blocks; block++ {
		instances := byBlock[block]
		if block == 0 && len(instances) == 0 {
			continue
		}
		fmt.Fprintf(out, "+%s+\n", hyphens)
		if block == 0 {
			fmt.Fprintf(out, "| %-*s |\n", nameLen+10, "unplaced")
		} else {
			fmt.Fprintf(out, "| %-*s |\n", nameLen+10, fmt.Sprintf("block %d (%d seats)", block, r.BlockSeats[block]))
		}
		for _, inst := range instances {
			capacity := "-"
			if inst.Course.MaxStudents != Unlimited {
				capacity = fmt.Sprintf("%d", inst.Course.MaxStudents)
			}
			fmt.Fprintf(out, "|   %-*s %4d/%-3s |\n", nameLen, instanceLabel(inst), a.Enrolled[inst], capacity)
		}
	}
	fmt.Fprintf(out, "+%s+\n\n", hyphens)

	headerColor.Fprintln(out, "Highest preference used:")
	var ranks []int
	for rank := range r.HighestUsed {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	for _, rank := range ranks {
		if rank == 0 {
			dimColor.Fprintf(out, "  none: %d\n", r.HighestUsed[rank])
			continue
		}
		fmt.Fprintf(out, "  %4d: %d\n", rank, r.HighestUsed[rank])
	}
	for s, n := range r.Unassigned {
		if n > 0 {
			fmt.Fprintf(out, "  slot %d unassigned for %d students\n", s+1, n)
		}
	}
	fmt.Fprintln(out)

	for _, msg := range warnings {
		warningColor.Fprintf(out, "warning: %s\n", msg)
	}
	if len(r.Problems) == 0 {
		fmt.Fprintln(out, "All constraints satisfied.")
		return
	}
	fmt.Fprintf(out, "Total badness %d with the following known problems:\n", r.Badness)
	for _, problem := range r.Problems {
		if problem.Severity >= Impossible {
			problemColor.Fprintln(out, "* "+problem.Message)
		} else {
			fmt.Fprintln(out, "* "+problem.Message)
		}
	}
}

func instanceLabel(inst *CourseInstance) string {
	return fmt.Sprintf("%s #%d (id %d)", inst.Course.Name, inst.Instance, inst.ID)
}
