package session

import (
	"context"
	"time"
)

// Scheduler runs functions on the control thread. Everything that touches
// surfaces, the controller or the topology goes through it.
type Scheduler interface {
	// Post queues fn. It never blocks the caller on fn itself.
	Post(fn func())
	// After queues fn once d has elapsed.
	After(d time.Duration, fn func())
}

// Loop is a Scheduler backed by a single goroutine, used when no GUI main
// loop is running.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run processes posted functions until ctx is cancelled
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Call runs fn on sched and waits for it to return
func Call(ctx context.Context, sched Scheduler, fn func() error) error {
	result := make(chan error, 1)
	sched.Post(func() { result <- fn() })

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartTicker posts fn every interval until ctx is cancelled. A tick that
// is still queued when the next one fires is not duplicated.
func StartTicker(ctx context.Context, sched Scheduler, interval time.Duration, fn func()) {
	pending := make(chan struct{}, 1)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case pending <- struct{}{}:
				default:
					continue
				}
				sched.Post(func() {
					<-pending
					if ctx.Err() == nil {
						fn()
					}
				})
			}
		}
	}()
}
