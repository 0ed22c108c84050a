package fl

import "github.com/gammazero/workerpool"

// Executor runs round processing off the request path.
type Executor interface {
	Submit(task func())
}

// Pool runs tasks on a bounded set of goroutines.
type Pool struct {
	wp *workerpool.WorkerPool
}

var _ Executor = (*Pool)(nil)

func NewPool(size int) *Pool {
	return &Pool{wp: workerpool.New(max(size, 1))}
}

func (p *Pool) Submit(task func()) {
	p.wp.Submit(task)
}

// Stop waits for queued tasks to finish.
func (p *Pool) Stop() {
	p.wp.StopWait()
}

// Inline runs tasks on the calling goroutine.
type Inline struct{}

var _ Executor = Inline{}

func (Inline) Submit(task func()) {
	task()
}
