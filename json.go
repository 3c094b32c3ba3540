package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type savedRun struct {
	Run struct {
		ID            string `json:"id"`
		ShortlistSize int    `json:"shortlist_size"`
		Blocks        int    `json:"blocks"`
		Slots         int    `json:"slots"`
		Seed          int64  `json:"seed"`
	} `json:"run"`
	Courses []struct {
		ID       int    `json:"id"`
		Course   string `json:"course"`
		Instance int    `json:"instance"`
		Block    int    `json:"block"`
	} `json:"courses"`
	Students map[string]struct {
		Priority int    `json:"priority"`
		Slots    []*int `json:"slots"`
	} `json:"students"`
}

// ReadJSON loads a saved course list and assignment and checks that it
// refers only to students and courses in the data set.
func (data *DataSet) ReadJSON(r io.Reader) (*Courselist, *Assignment, Params, error) {
	var params Params
	decoder := json.NewDecoder(r)
	var saved savedRun
	if err := decoder.Decode(&saved); err != nil {
		return nil, nil, params, err
	}
	params = Params{
		ShortlistSize: saved.Run.ShortlistSize,
		Blocks:        saved.Run.Blocks,
		Slots:         saved.Run.Slots,
		Seed:          saved.Run.Seed,
	}
	if params.Blocks < 1 || params.Slots < 1 {
		return nil, nil, params, fmt.Errorf("%w: run header needs blocks and slots", ErrNoResult)
	}

	// build the course list
	list := &Courselist{Blocks: params.Blocks}
	for i, elt := range saved.Courses {
		course := data.CourseByName[elt.Course]
		if course == nil {
			return nil, nil, params, fmt.Errorf("%w: course #%d names unknown course %q", ErrNoResult, i+1, elt.Course)
		}
		list.Instances = append(list.Instances, &CourseInstance{
			ID:       elt.ID,
			Course:   course,
			Instance: elt.Instance,
			Block:    elt.Block,
		})
	}
	list.index()
	if len(list.ByID) != len(list.Instances) {
		return nil, nil, params, fmt.Errorf("%w: course instance ids are not unique", ErrNoResult)
	}

	// build the assignment
	a := newAssignment(data, params.Slots)
	for name, elt := range saved.Students {
		student := data.StudentByName[name]
		if student == nil {
			return nil, nil, params, fmt.Errorf("%w: unknown student %q", ErrNoResult, name)
		}
		if len(elt.Slots) != params.Slots {
			return nil, nil, params, fmt.Errorf("%w: found %d slots for %s, but expected to find %d",
				ErrNoResult, len(elt.Slots), name, params.Slots)
		}
		a.Priority[student.Position] = elt.Priority
		for s, id := range elt.Slots {
			if id == nil {
				continue
			}
			inst := list.ByID[*id]
			if inst == nil {
				return nil, nil, params, fmt.Errorf("%w: %s slot %d has unrecognized course id %d",
					ErrNoResult, name, s+1, *id)
			}
			a.Selected[student.Position][s] = inst
			a.Enrolled[inst]++
		}
	}
	if len(data.Students) != len(saved.Students) {
		return nil, nil, params, fmt.Errorf("%w: expected to find selections for %d students, but found %d instead",
			ErrNoResult, len(data.Students), len(saved.Students))
	}

	return list, a, params, nil
}

// WriteJSON writes the run header, the course list, and each student's slots.
func (data *DataSet) WriteJSON(w io.Writer, result *Result) error {
	list, a := result.Courselist, result.Assignment
	maxCourse, maxStudent := 0, 0
	for _, inst := range list.Instances {
		if len(inst.Course.Name) > maxCourse {
			maxCourse = len(inst.Course.Name)
		}
	}
	for _, student := range data.Students {
		if len(student.Name) > maxStudent {
			maxStudent = len(student.Name)
		}
	}

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "{\n")
	fmt.Fprintf(buf, "    \"run\": {\"id\": %q, \"shortlist_size\": %d, \"blocks\": %d, \"slots\": %d, \"seed\": %d},\n",
		result.RunID.String(), result.Params.ShortlistSize, result.Params.Blocks, result.Params.Slots, result.Params.Seed)

	fmt.Fprintf(buf, "    \"courses\": [\n")
	for n, inst := range list.Instances {
		comma := ","
		if n == len(list.Instances)-1 {
			comma = ""
		}
		name, _ := json.Marshal(inst.Course.Name)
		fmt.Fprintf(buf, "        {\"id\": %4d, \"course\": %-*s, \"instance\": %2d, \"block\": %2d}%s\n",
			inst.ID, maxCourse+2, string(name), inst.Instance, inst.Block, comma)
	}
	fmt.Fprintf(buf, "    ],\n")

	fmt.Fprintf(buf, "    \"students\": {\n")
	for n, student := range data.Students {
		var slots []string
		for _, inst := range a.Selected[student.Position] {
			if inst == nil {
				slots = append(slots, "null")
			} else {
				slots = append(slots, fmt.Sprintf("%d", inst.ID))
			}
		}
		comma := ","
		if n == len(data.Students)-1 {
			comma = ""
		}
		key, _ := json.Marshal(student.Name)
		fmt.Fprintf(buf, "        %-*s {\"priority\": %3d, \"slots\": [%s]}%s\n",
			maxStudent+3, string(key)+":", a.Priority[student.Position], strings.Join(slots, ", "), comma)
	}
	fmt.Fprintf(buf, "    }\n")
	fmt.Fprintf(buf, "}\n")

	_, err := buf.WriteTo(w)
	return err
}
