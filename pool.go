package tilequeue

type Pool interface {
	// Start gets the worker pool ready-to-process jobs, and should only be called once
	Start()

	// Stop lets the workers finish the tasks already handed over, then tears them down.
	// Calling it more than once is a no-op.
	Stop() error

	// AddWork adds a task for the worker pool to process. It is only valid after
	// Start() has been called and before Stop() has been called.
	AddWork(*Task) error

	// AddWorkNonBlocking adds a task for the worker pool to process but doesn't return an error,
	// it passes the error to errChan, or logs it when errChan is nil.
	AddWorkNonBlocking(t *Task, errChan chan error)
}
