package platform

import (
	"sync"
)

// TaskTable lets C code refer to queued tasks by integer key, for backends
// whose post primitive carries a single pointer-sized value.
type TaskTable struct {
	mu    sync.Mutex
	next  uintptr
	tasks map[uintptr]ownedTask
}

type ownedTask struct {
	owner any
	task  *Task
}

// NewTaskTable returns an empty table.
func NewTaskTable() *TaskTable {
	return &TaskTable{tasks: make(map[uintptr]ownedTask)}
}

// Store registers t for owner and returns its key. Once done is closed the
// owner's loop is gone and Store fails with ErrLoopStopped.
func (tt *TaskTable) Store(owner any, done <-chan struct{}, t *Task) (uintptr, error) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	select {
	case <-done:
		return 0, ErrLoopStopped
	default:
	}
	tt.next++
	tt.tasks[tt.next] = ownedTask{owner: owner, task: t}
	return tt.next, nil
}

// Run executes the task stored under key. Unknown keys, including those of
// cancelled tasks, are ignored.
func (tt *TaskTable) Run(key uintptr) {
	tt.mu.Lock()
	ot, ok := tt.tasks[key]
	delete(tt.tasks, key)
	tt.mu.Unlock()

	if ok {
		ot.task.Run()
	}
}

// Cancel fails every task still stored for owner. Call it after closing the
// owner's done channel so that no task can be stored behind it.
func (tt *TaskTable) Cancel(owner any) {
	tt.mu.Lock()
	var cancelled []*Task
	for key, ot := range tt.tasks {
		if ot.owner == owner {
			cancelled = append(cancelled, ot.task)
			delete(tt.tasks, key)
		}
	}
	tt.mu.Unlock()

	for _, t := range cancelled {
		t.Cancel()
	}
}
