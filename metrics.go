package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "selection"

// RunMetrics are the gauges describing one allocation run.
type RunMetrics struct {
	reg *prometheus.Registry

	students      prometheus.Gauge
	slots         *prometheus.GaugeVec
	instances     prometheus.Gauge
	enrolled      *prometheus.GaugeVec
	highestUsed   *prometheus.GaugeVec
	problems      prometheus.Gauge
	warnings      prometheus.Gauge
	priorityTotal prometheus.Gauge
}

// NewRunMetrics registers the run gauges on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{reg: prometheus.NewRegistry()}
	m.students = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "students",
		Help:      "Students in the preferences file.",
	})
	m.slots = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "slots",
		Help:      "Selection slots by outcome.",
	}, []string{"outcome"})
	m.instances = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "course_instances",
		Help:      "Course instances on the course list.",
	})
	m.enrolled = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "block_seats",
		Help:      "Assigned seats per block.",
	}, []string{"block"})
	m.highestUsed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "highest_preference_used",
		Help:      "Students by the worst preference rank they were assigned (0 = none).",
	}, []string{"rank"})
	m.problems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "problems",
		Help:      "Constraint problems found by the checker.",
	})
	m.warnings = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "warnings",
		Help:      "Configuration warnings raised by the run.",
	})
	m.priorityTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "priority_gained",
		Help:      "Priority gained by all students for passing over preferences.",
	})
	m.reg.MustRegister(m.students, m.slots, m.instances, m.enrolled, m.highestUsed, m.problems, m.warnings, m.priorityTotal)
	return m
}

// Observe records a finished run.
func (m *RunMetrics) Observe(data *DataSet, result *Result, report *Report) {
	a := result.Assignment
	m.students.Set(float64(len(data.Students)))
	filled := a.Filled()
	m.slots.WithLabelValues("filled").Set(float64(filled))
	m.slots.WithLabelValues("unassigned").Set(float64(len(data.Students)*a.Slots - filled))
	m.instances.Set(float64(len(result.Courselist.Instances)))
	for block := 1; block <= result.Courselist.Blocks; block++ {
		m.enrolled.WithLabelValues(strconv.Itoa(block)).Set(float64(report.BlockSeats[block]))
	}
	for rank, n := range report.HighestUsed {
		m.highestUsed.WithLabelValues(strconv.Itoa(rank)).Set(float64(n))
	}
	m.problems.Set(float64(len(report.Problems)))
	m.warnings.Set(float64(len(result.Warnings())))

	gained := 0
	for _, student := range data.Students {
		gained += a.Priority[student.Position] - student.Priority
	}
	m.priorityTotal.Set(float64(gained))
}

// Gatherer exposes the registry.
func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.reg
}

// WriteTextfile writes the gauges in the text exposition format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	slog.Info("metrics written", "file", path)
	return nil
}
