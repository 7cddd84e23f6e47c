package task

import (
	"errors"
	"time"

	"github.com/compozy/taskdef/engine/core"
)

// Result records one execution attempt of a task. Task is a back-reference
// and is not owned by the result.
type Result struct {
	ExecID  core.ID
	Status  Status
	Outputs map[string]any
	Err     error
	StartAt time.Time
	EndAt   time.Time
	Task    *Task

	now func() time.Time
}

func NewResult(t *Task) *Result {
	r := &Result{
		ExecID: core.MustNewID(),
		Status: StatusNone,
		Task:   t,
		now:    time.Now,
	}
	created := r.now()
	r.StartAt = created
	r.EndAt = created
	return r
}

// Start moves the result to running and stamps StartAt.
func (r *Result) Start() *Result {
	r.Status = StatusRunning
	r.StartAt = r.clock()
	return r
}

// End stamps EndAt and records the outcome. An empty status means ok.
//
// err is always normalized: an error is kept, a string becomes an error,
// and any other value, nil included, becomes an *ExecutionError. Err is
// therefore set even for successful results; check Status before treating
// it as a failure.
func (r *Result) End(status Status, outputs map[string]any, err any) *Result {
	r.EndAt = r.clock()
	if status == "" {
		status = StatusOK
	}
	r.Status = status
	r.Outputs = outputs
	switch e := err.(type) {
	case error:
		r.Err = e
	case string:
		r.Err = errors.New(e)
	default:
		r.Err = &ExecutionError{Value: e}
	}
	return r
}

func (r *Result) Duration() time.Duration {
	return r.EndAt.Sub(r.StartAt)
}

// Failed reports whether the task ended in error or was cancelled; Err is only
// meaningful when it did.
func (r *Result) Failed() bool {
	return r.Status.IsFailure()
}

func (r *Result) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}
