package main

import (
	"math/rand"
	"sort"
)

// An Assignment is the output of the third stage: the course instance each
// student was given in each selection slot.
type Assignment struct {
	Slots int

	// Selected[student.Position][slot-1]; nil means unassigned
	Selected [][]*CourseInstance

	// Priority[student.Position] after the final round
	Priority []int

	// History[r][student.Position] is the priority at the start of round r+1;
	// the last entry is the final priority
	History [][]int

	// students assigned to each instance across all slots
	Enrolled map[*CourseInstance]int
}

// Course returns the course instance assigned to a student in a slot (1-based).
func (a *Assignment) Course(student *Student, slot int) *CourseInstance {
	return a.Selected[student.Position][slot-1]
}

// Filled counts the assigned slots.
func (a *Assignment) Filled() int {
	n := 0
	for _, slots := range a.Selected {
		for _, inst := range slots {
			if inst != nil {
				n++
			}
		}
	}
	return n
}

func newAssignment(data *DataSet, slots int) *Assignment {
	a := &Assignment{
		Slots:    slots,
		Selected: make([][]*CourseInstance, len(data.Students)),
		Priority: make([]int, len(data.Students)),
		Enrolled: make(map[*CourseInstance]int),
	}
	for _, student := range data.Students {
		a.Selected[student.Position] = make([]*CourseInstance, slots)
		a.Priority[student.Position] = student.Priority
	}
	return a
}

// AssignStudents fills the selection slots one round at a time. In each round
// students are served in order of priority, ties broken by a random draw, and
// each takes the first remaining preference that still has a free instance in
// a block they are not already using. A student who has to pass over
// preferences gains that much priority for later rounds. A student who
// cannot be placed in a round gets nothing in the later rounds either.
func (data *DataSet) AssignStudents(list *Courselist, slots int, rng *rand.Rand) *Assignment {
	a := newAssignment(data, slots)

	// each student's preferences among courses that actually run
	prefs := make([][]*Course, len(data.Students))
	for _, student := range data.Students {
		for _, pref := range student.Prefs {
			if len(list.Placed(pref.Course)) > 0 {
				prefs[student.Position] = append(prefs[student.Position], pref.Course)
			}
		}
	}
	// index into prefs of the course assigned in each slot
	prefIndex := make([][]int, len(data.Students))
	for i := range prefIndex {
		prefIndex[i] = make([]int, slots)
	}

	order := make([]*Student, len(data.Students))
	copy(order, data.Students)
	draws := make([]float64, len(data.Students))

	for slot := 0; slot < slots; slot++ {
		a.History = append(a.History, append([]int(nil), a.Priority...))

		// draw in input order so the sequence does not depend on the previous round
		for _, student := range data.Students {
			draws[student.Position] = rng.Float64()
		}
		sort.SliceStable(order, func(i, j int) bool {
			pi, pj := a.Priority[order[i].Position], a.Priority[order[j].Position]
			if pi != pj {
				return pi > pj
			}
			return draws[order[i].Position] < draws[order[j].Position]
		})

		for _, student := range order {
			pos := student.Position
			start := 0
			if slot > 0 {
				if a.Selected[pos][slot-1] == nil {
					// the last round failed, so this one will too
					continue
				}
				start = prefIndex[pos][slot-1] + 1
			}

			index, inst := a.pick(list, a.Selected[pos][:slot], prefs[pos], start, rng)
			if inst == nil {
				continue
			}
			a.Selected[pos][slot] = inst
			prefIndex[pos][slot] = index
			a.Enrolled[inst]++
			a.Priority[pos] += index - start
		}
	}
	a.History = append(a.History, append([]int(nil), a.Priority...))

	return a
}

// pick scans prefs from start and returns the first course instance the
// student can take, along with its index in prefs.
func (a *Assignment) pick(list *Courselist, taken []*CourseInstance, prefs []*Course, start int, rng *rand.Rand) (int, *CourseInstance) {
	occupied := make(map[int]bool)
	for _, inst := range taken {
		occupied[inst.Block] = true
	}

	for index := start; index < len(prefs); index++ {
		course := prefs[index]
		var next *Course
		if index+1 < len(prefs) {
			next = prefs[index+1]
		}

		var best *CourseInstance
		bestBlocking, bestCount, bestDraw := false, 0, 0.0
		for _, inst := range list.Placed(course) {
			if occupied[inst.Block] {
				continue
			}
			count := a.Enrolled[inst]
			if !course.HasRoom(count) {
				continue
			}

			// prefer a block that leaves the next preference open,
			// then the emptier instance
			blocking := next != nil && list.Hosts(next, inst.Block)
			draw := rng.Float64()
			better := best == nil
			switch {
			case better:
			case blocking != bestBlocking:
				better = !blocking
			case count != bestCount:
				better = count < bestCount
			default:
				better = draw < bestDraw
			}
			if better {
				best, bestBlocking, bestCount, bestDraw = inst, blocking, count, draw
			}
		}
		if best != nil {
			return index, best
		}
	}
	return -1, nil
}
