package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhq/netpatrol/pkg/models"
)

func task(deviceID int64, priority int) *CheckTask {
	return &CheckTask{
		Device:   &models.Device{ID: deviceID},
		Kind:     models.CheckKindPing,
		Priority: priority,
	}
}

func TestQueuePriorityOrdering(t *testing.T) {
	q := newTaskQueue()

	q.Push(task(1, priorityNormal))
	q.Push(task(2, priorityOffline))
	q.Push(task(3, priorityDegraded))

	tasks := q.PopN(3)
	require.Len(t, tasks, 3)
	assert.Equal(t, int64(2), tasks[0].Device.ID)
	assert.Equal(t, int64(3), tasks[1].Device.ID)
	assert.Equal(t, int64(1), tasks[2].Device.ID)
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := newTaskQueue()

	for i := int64(1); i <= 5; i++ {
		q.Push(task(i, priorityNormal))
	}

	tasks := q.PopN(5)
	require.Len(t, tasks, 5)

	for i, tk := range tasks {
		assert.Equal(t, int64(i+1), tk.Device.ID, "equal priorities pop in insertion order")
	}
}

func TestQueuePopNBounded(t *testing.T) {
	q := newTaskQueue()

	q.Push(task(1, priorityNormal))
	q.Push(task(2, priorityNormal))

	tasks := q.PopN(10)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 0, q.Len())
}

func TestQueuePopNEmpty(t *testing.T) {
	q := newTaskQueue()

	assert.Empty(t, q.PopN(5))
}

func TestQueueClear(t *testing.T) {
	q := newTaskQueue()

	q.Push(task(1, priorityNormal))
	q.Push(task(2, priorityOffline))
	q.Clear()

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.PopN(5))
}

func TestQueueInterleavedPriorities(t *testing.T) {
	q := newTaskQueue()

	q.Push(task(1, priorityNormal))
	q.Push(task(2, priorityOffline))
	q.Push(task(3, priorityNormal))
	q.Push(task(4, priorityOffline))

	tasks := q.PopN(4)
	ids := []int64{tasks[0].Device.ID, tasks[1].Device.ID, tasks[2].Device.ID, tasks[3].Device.ID}
	assert.Equal(t, []int64{2, 4, 1, 3}, ids)
}

func TestPriorityForStatus(t *testing.T) {
	assert.Equal(t, priorityOffline, priorityForStatus(models.StatusOffline))
	assert.Equal(t, priorityDegraded, priorityForStatus(models.StatusDegraded))
	assert.Equal(t, priorityNormal, priorityForStatus(models.StatusOnline))
	assert.Equal(t, priorityNormal, priorityForStatus(models.StatusUnknown))
}
