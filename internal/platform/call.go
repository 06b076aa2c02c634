package platform

// Task is a unit of work marshalled onto a backend's UI thread.
type Task struct {
	fn     func() error
	result chan error
}

// Run executes the task and publishes its result. It must be called exactly
// once, on the UI thread.
func (t *Task) Run() {
	t.result <- t.fn()
}

// Cancel fails the task without running it, used when the loop drains
// pending work on exit.
func (t *Task) Cancel() {
	t.result <- ErrLoopStopped
}

// Call hands fn to post and waits until the UI thread ran it or the loop
// signalled done. post must be safe to call from any goroutine and must not
// run the task synchronously.
func Call(post func(*Task) error, done <-chan struct{}, fn func() error) error {
	select {
	case <-done:
		return ErrLoopStopped
	default:
	}

	t := &Task{fn: fn, result: make(chan error, 1)}
	if err := post(t); err != nil {
		return err
	}

	select {
	case err := <-t.result:
		return err
	case <-done:
		// The task may still have completed right before the loop exited.
		select {
		case err := <-t.result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}
