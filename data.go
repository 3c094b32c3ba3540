package main

import "sort"

// Unlimited marks a course parameter with no upper bound.
const Unlimited = -1

// A Student is one row of the preferences file.
type Student struct {
	Name     string
	Priority int
	Position int

	// ranked preferences, most preferred first
	Prefs []Preference
}

// A Course is one column of the preferences file together with its parameters.
type Course struct {
	Name     string
	Position int

	// MaxRepeats caps how many times the course may run (0 removes it).
	MaxRepeats  int
	MustRun     bool
	MaxStudents int
}

// A Preference is a student's rank for one course.
type Preference struct {
	Course *Course
	Rank   int
}

// DataSet holds everything read from the input files.
type DataSet struct {
	Students []*Student
	Courses  []*Course

	StudentByName map[string]*Student
	CourseByName  map[string]*Course

	// highest rank used by any student
	MaxRank int
}

func NewDataSet() *DataSet {
	return &DataSet{
		StudentByName: make(map[string]*Student),
		CourseByName:  make(map[string]*Course),
	}
}

// AddCourse registers a course column. Parameters default to unlimited.
func (data *DataSet) AddCourse(name string) *Course {
	course := &Course{
		Name:        name,
		Position:    len(data.Courses),
		MaxRepeats:  Unlimited,
		MaxStudents: Unlimited,
	}
	data.Courses = append(data.Courses, course)
	data.CourseByName[name] = course
	return course
}

// AddStudent registers a student and sorts the given preferences by rank.
func (data *DataSet) AddStudent(name string, priority int, prefs []Preference) *Student {
	student := &Student{
		Name:     name,
		Priority: priority,
		Position: len(data.Students),
		Prefs:    prefs,
	}
	sort.SliceStable(student.Prefs, func(a, b int) bool {
		return student.Prefs[a].Rank < student.Prefs[b].Rank
	})
	for _, pref := range prefs {
		if pref.Rank > data.MaxRank {
			data.MaxRank = pref.Rank
		}
	}
	data.Students = append(data.Students, student)
	data.StudentByName[name] = student
	return student
}

// RankOf returns the student's rank for a course, or 0 if it was not ranked.
func (student *Student) RankOf(course *Course) int {
	for _, pref := range student.Prefs {
		if pref.Course == course {
			return pref.Rank
		}
	}
	return 0
}

// Ranks returns the distinct ranks used by any student, in increasing order.
func (data *DataSet) Ranks() []int {
	seen := make(map[int]bool)
	var ranks []int
	for _, student := range data.Students {
		for _, pref := range student.Prefs {
			if !seen[pref.Rank] {
				seen[pref.Rank] = true
				ranks = append(ranks, pref.Rank)
			}
		}
	}
	sort.Ints(ranks)
	return ranks
}

// CanRun reports whether a course may have n instances.
func (course *Course) CanRun(n int) bool {
	return course.MaxRepeats == Unlimited || n <= course.MaxRepeats
}

// HasRoom reports whether an instance with n students can take another.
func (course *Course) HasRoom(n int) bool {
	return course.MaxStudents == Unlimited || n < course.MaxStudents
}
