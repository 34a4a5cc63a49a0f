package task_test

import (
	"testing"

	"github.com/kairoslabs/agentcore/pkg/task"
	"github.com/stretchr/testify/require"
)

func TestTopologicalOrder_PriorityBreaksTiesAmongReadyNodes(t *testing.T) {
	m := task.New()
	require.NoError(t, m.AddTask(task.Task{ID: "a", Priority: 1}))
	require.NoError(t, m.AddTask(task.Task{ID: "b", Priority: 9}))
	require.NoError(t, m.AddTask(task.Task{ID: "c", Priority: 5, Dependencies: []string{"a", "b"}}))

	order, err := m.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c"}, order)
}

func TestAddTask_RejectsUnknownDependency(t *testing.T) {
	m := task.New()
	err := m.AddTask(task.Task{ID: "a", Dependencies: []string{"ghost"}})
	require.Error(t, err)
}

func TestAddTask_RejectsCycle(t *testing.T) {
	m := task.New()
	require.NoError(t, m.AddTask(task.Task{ID: "a"}))
	require.NoError(t, m.AddTask(task.Task{ID: "b", Dependencies: []string{"a"}}))
	// Dependencies must already exist, so the only cycle AddTask can be
	// asked to create is a task depending on itself; it is rejected.
	require.Error(t, m.AddTask(task.Task{ID: "c", Dependencies: []string{"c"}}))
	require.False(t, m.DetectCycles())
	order, err := m.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestReadyTasks_OnlyPendingWithCompletedDeps(t *testing.T) {
	m := task.New()
	require.NoError(t, m.AddTask(task.Task{ID: "a"}))
	require.NoError(t, m.AddTask(task.Task{ID: "b", Dependencies: []string{"a"}}))

	ready := m.ReadyTasks()
	require.Len(t, ready, 1)
	require.Equal(t, "a", ready[0].ID)

	require.NoError(t, m.Update("a", task.StatusRunning, ""))
	require.NoError(t, m.Update("a", task.StatusCompleted, "done"))

	ready = m.ReadyTasks()
	require.Len(t, ready, 1)
	require.Equal(t, "b", ready[0].ID)
}

func TestUpdate_RejectsIllegalTransitions(t *testing.T) {
	m := task.New()
	require.NoError(t, m.AddTask(task.Task{ID: "a"}))

	require.Error(t, m.Update("a", task.StatusCompleted, ""))

	require.NoError(t, m.Update("a", task.StatusRunning, ""))
	require.NoError(t, m.Update("a", task.StatusCompleted, "ok"))

	require.Error(t, m.Update("a", task.StatusRunning, ""))
	require.Error(t, m.Update("a", task.StatusFailed, ""))
}

func TestVisualizeDependencies_IncludesEdgesAndStatus(t *testing.T) {
	m := task.New()
	require.NoError(t, m.AddTask(task.Task{ID: "a", Description: "first"}))
	require.NoError(t, m.AddTask(task.Task{ID: "b", Description: "second", Dependencies: []string{"a"}}))

	out := m.VisualizeDependencies()
	require.Contains(t, out, "flowchart TD")
	require.Contains(t, out, "a --> b")
}
