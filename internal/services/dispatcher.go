package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/logger"
)

// Dispatcher runs pipeline stages out-of-band from the triggering HTTP
// request. Every dispatched task hands back a completion channel so failures
// are observable instead of silently swallowed; callers that need the result
// inline (the external-source path) block on it, the multipart path does not.
type Dispatcher interface {
	Start(ctx context.Context)
	Stop()
	Dispatch(name string, fn func(ctx context.Context) error) <-chan error
}

type task struct {
	name string
	fn   func(ctx context.Context) error
	done chan error
}

type dispatcher struct {
	taskQueue   chan task
	concurrency int
	wg          sync.WaitGroup
	stopOnce    sync.Once
	stopChan    chan struct{}
	log         *logrus.Entry
}

func NewDispatcher(concurrency int) Dispatcher {
	return &dispatcher{
		taskQueue:   make(chan task, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		log:         logger.ForModule("dispatcher"),
	}
}

// Start implements Dispatcher.
func (d *dispatcher) Start(ctx context.Context) {
	d.log.WithField("concurrency", d.concurrency).Info("starting dispatcher")

	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.run(ctx, i+1)
	}
}

// Stop implements Dispatcher. Tasks already in the queue are executed before
// the workers exit, so every completion channel handed out by Dispatch still
// resolves.
func (d *dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()

	// Reject anything enqueued between the stop signal and the last worker
	// exiting.
	for {
		select {
		case t := <-d.taskQueue:
			t.done <- fmt.Errorf("dispatcher stopped, cannot run task %s", t.name)
		default:
			d.log.Info("dispatcher stopped")
			return
		}
	}
}

// Dispatch implements Dispatcher. The returned channel is buffered and
// receives exactly one value: nil on success, the task's error otherwise.
func (d *dispatcher) Dispatch(name string, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)

	// Checked first so a stopped dispatcher rejects deterministically even
	// though the queue still has capacity.
	select {
	case <-d.stopChan:
		done <- fmt.Errorf("dispatcher stopped, cannot enqueue task %s", name)
		return done
	default:
	}

	select {
	case d.taskQueue <- task{name: name, fn: fn, done: done}:
		d.log.WithField("task", name).Debug("task enqueued")
	case <-d.stopChan:
		done <- fmt.Errorf("dispatcher stopped, cannot enqueue task %s", name)
	}

	return done
}

func (d *dispatcher) run(ctx context.Context, workerID int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			d.drain(ctx, workerID)
			return
		case t := <-d.taskQueue:
			t.done <- d.execute(ctx, workerID, t)
		}
	}
}

// drain runs the tasks still queued when the stop signal arrived. They were
// accepted by Dispatch, so their completion channels must resolve.
func (d *dispatcher) drain(ctx context.Context, workerID int) {
	for {
		select {
		case t := <-d.taskQueue:
			t.done <- d.execute(ctx, workerID, t)
		default:
			return
		}
	}
}

func (d *dispatcher) execute(ctx context.Context, workerID int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
			d.log.WithField("task", t.name).Errorf("recovered panic: %v", r)
		}
	}()

	log := d.log.WithFields(logrus.Fields{"worker": workerID, "task": t.name})
	log.Info("task started")

	if err := t.fn(ctx); err != nil {
		log.WithError(err).Error("task failed")
		return err
	}

	log.Info("task completed")
	return nil
}
