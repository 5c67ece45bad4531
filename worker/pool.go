// Package worker stands in for the streaming worker thread spec.md
// §4.H hands a bound Receiver State off to. The acceptance core's job
// ends at the queue: this package only needs to accept ownership,
// exercise it until the connection ends, and release it -- real frame
// decoding is explicitly out of scope (spec.md §2 budget notes, §4.H).
package worker

import (
	"errors"
	"sync"

	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/receiver"
)

// ErrPoolClosed is returned by Enqueue once Shutdown has been called;
// the caller retains ownership of the state and must Free it itself.
var ErrPoolClosed = errors.New("worker: pool is closed")

// ConsumeFunc owns a handed-off Receiver State for the rest of its
// life: it must eventually call state.MarkStopped and state.Free.
type ConsumeFunc func(*receiver.State)

// Pool is the single queue streaming workers drain (spec.md §4.H,
// §5 "Shared resources": "a single-producer/single-consumer transfer of
// ownership" per item, fanned across a fixed worker count).
type Pool struct {
	log   logger.Logger
	queue chan *receiver.State

	consume ConsumeFunc

	closeOnce sync.Once
	done      chan struct{}
	endsignal []channels.Awaitable
}

// NewPool starts workers goroutines, each independently pulling off the
// same queue, and returns the running Pool. queueDepth bounds how many
// handed-off connections may wait for a free worker before Enqueue
// blocks.
func NewPool(workers, queueDepth int, consume ConsumeFunc, log logger.Logger) *Pool {
	p := &Pool{
		log:     log,
		queue:   make(chan *receiver.State, queueDepth),
		consume: consume,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.endsignal = append(p.endsignal, p.launch())
	}
	return p
}

// launch starts one worker goroutine and returns an Awaitable signaled
// once that goroutine has returned -- the same shutdown-signal idiom
// the teacher's server package used for its writer goroutine.
func (p *Pool) launch() channels.Awaitable {
	endsignal := channels.NewSignalAwaitable()

	go func() {
		defer endsignal.Signal()

		for {
			select {
			case s, ok := <-p.queue:
				if !ok {
					return
				}
				p.consume(s)
			case <-p.done:
				return
			}
		}
	}()

	return endsignal
}

// Enqueue hands ownership of s to whichever worker goroutine receives
// it next (spec.md §4.H: "Enqueue transfers ownership; the acceptance
// flow no longer touches it"). On ErrPoolClosed, ownership never
// transferred and the caller must free s.
func (p *Pool) Enqueue(s *receiver.State) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	select {
	case p.queue <- s:
		return nil
	case <-p.done:
		return ErrPoolClosed
	}
}

// Shutdown stops handing out new work, waits for every in-flight
// consumer to return, then frees anything left sitting in the queue
// unconsumed.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() { close(p.done) })

	for _, sig := range p.endsignal {
		sig.WaitForever()
	}

	for {
		select {
		case s := <-p.queue:
			s.Free()
		default:
			return
		}
	}
}
