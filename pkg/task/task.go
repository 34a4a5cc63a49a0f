// Package task implements the DAG-based TaskManager used by the planner
// role: a flat, add-only map of nodes addressed by string id, so the
// cycle-check semantics hold without introducing cyclic pointer graphs
// (spec §9 design note).
package task

import (
	"fmt"
	"sort"
	"sync"
)

// Status is one of the states in the task state machine (spec §3).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Task is a single DAG node.
type Task struct {
	ID           string
	Description  string
	Status       Status
	Dependencies []string
	Priority     int // 1-10
	Result       string
}

// GraphError reports a violation of the DAG invariants: an unknown
// dependency id, a cycle, or an illegal status transition.
type GraphError struct {
	Op      string
	TaskID  string
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("task graph error in %s(%s): %s", e.Op, e.TaskID, e.Message)
}

// Manager owns the DAG. Zero value is not usable; construct with New.
type Manager struct {
	mu     sync.Mutex
	nodes  map[string]*Task
	order  []string // insertion order, used to break topological-sort ties
	seqNum map[string]int
}

// New creates an empty task manager.
func New() *Manager {
	return &Manager{
		nodes:  make(map[string]*Task),
		seqNum: make(map[string]int),
	}
}

// AddTask appends a task. Dependency ids must already exist and the
// resulting graph must remain acyclic; on either violation the task is
// not added and a *GraphError is returned.
func (m *Manager) AddTask(t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		return &GraphError{Op: "AddTask", TaskID: t.ID, Message: "task id must not be empty"}
	}
	if _, exists := m.nodes[t.ID]; exists {
		return &GraphError{Op: "AddTask", TaskID: t.ID, Message: "task id already exists"}
	}
	for _, dep := range t.Dependencies {
		if _, ok := m.nodes[dep]; !ok {
			return &GraphError{Op: "AddTask", TaskID: t.ID, Message: "unknown dependency id " + dep}
		}
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == 0 {
		t.Priority = 5
	}

	clone := t
	clone.Dependencies = append([]string(nil), t.Dependencies...)
	m.nodes[t.ID] = &clone
	m.order = append(m.order, t.ID)
	m.seqNum[t.ID] = len(m.order)

	if m.hasCycleLocked() {
		// Roll back: this task's addition introduced a cycle.
		delete(m.nodes, t.ID)
		delete(m.seqNum, t.ID)
		m.order = m.order[:len(m.order)-1]
		return &GraphError{Op: "AddTask", TaskID: t.ID, Message: "adding this task would create a cycle"}
	}
	return nil
}

// Get returns a copy of the task with the given id.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.nodes[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List returns all tasks in insertion order.
func (m *Manager) List() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.nodes[id])
	}
	return out
}

// DetectCycles reports whether the dependency graph currently contains a
// cycle, via depth-first search with a three-color visit marking.
func (m *Manager) DetectCycles() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasCycleLocked()
}

const (
	colorWhite = 0
	colorGray  = 1
	colorBlack = 2
)

func (m *Manager) hasCycleLocked() bool {
	color := make(map[string]int, len(m.nodes))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch color[id] {
		case colorGray:
			return true // back-edge: cycle
		case colorBlack:
			return false
		}
		color[id] = colorGray
		for _, dep := range m.nodes[id].Dependencies {
			if visit(dep) {
				return true
			}
		}
		color[id] = colorBlack
		return false
	}
	for id := range m.nodes {
		if color[id] == colorWhite {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// TopologicalOrder returns a deterministic order using the priority-aware
// variant of Kahn's algorithm: among zero-indegree nodes, the highest
// Priority wins, ties broken by insertion order. Returns an error if the
// graph contains a cycle.
func (m *Manager) TopologicalOrder() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	indegree := make(map[string]int, len(m.nodes))
	dependents := make(map[string][]string, len(m.nodes))
	for id, t := range m.nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range t.Dependencies {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := make([]string, 0)
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(m.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			ti, tj := m.nodes[ready[i]], m.nodes[ready[j]]
			if ti.Priority != tj.Priority {
				return ti.Priority > tj.Priority
			}
			return m.seqNum[ready[i]] < m.seqNum[ready[j]]
		})

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(m.nodes) {
		return nil, &GraphError{Op: "TopologicalOrder", TaskID: "", Message: "graph contains a cycle"}
	}
	return order, nil
}

// ReadyTasks returns Pending tasks all of whose dependencies are Completed.
func (m *Manager) ReadyTasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ready []Task
	for _, id := range m.order {
		t := m.nodes[id]
		if t.Status != StatusPending {
			continue
		}
		allDone := true
		for _, dep := range t.Dependencies {
			if d, ok := m.nodes[dep]; !ok || d.Status != StatusCompleted {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, *t)
		}
	}
	return ready
}

var validTransitions = map[Status]map[Status]bool{
	StatusPending: {StatusRunning: true, StatusSkipped: true},
	StatusRunning: {StatusCompleted: true, StatusFailed: true},
}

// Update enforces the state-machine transitions of spec §3: terminal
// states never re-enter, Pending may only go to Running or Skipped,
// Running may only go to Completed or Failed.
func (m *Manager) Update(id string, status Status, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.nodes[id]
	if !ok {
		return &GraphError{Op: "Update", TaskID: id, Message: "unknown task id"}
	}
	if t.Status == status {
		return nil
	}
	allowed := validTransitions[t.Status]
	if !allowed[status] {
		return &GraphError{Op: "Update", TaskID: id, Message: fmt.Sprintf("illegal transition %s -> %s", t.Status, status)}
	}
	t.Status = status
	if result != "" {
		t.Result = result
	}
	return nil
}

// VisualizeDependencies renders the DAG as a Mermaid flowchart, for the
// visualize_dependencies control tool.
func (m *Manager) VisualizeDependencies() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := "flowchart TD\n"
	for _, id := range m.order {
		t := m.nodes[id]
		out += fmt.Sprintf("  %s[%q]\n", safeID(id), fmt.Sprintf("%s (%s)", t.Description, t.Status))
		for _, dep := range t.Dependencies {
			out += fmt.Sprintf("  %s --> %s\n", safeID(dep), safeID(id))
		}
	}
	return out
}

func safeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
