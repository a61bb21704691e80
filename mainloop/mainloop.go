// Package mainloop implements a threaded event loop in the manner of
// pa_threaded_mainloop: a single goroutine runs every callback while holding
// a lock that is shared with the callers. Callers use Lock, Wait and Signal
// to block until a callback has delivered a result.
package mainloop

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrRunning = errors.New("mainloop: already started")
	ErrStopped = errors.New("mainloop: stopped")
)

type loopState int

const (
	idle loopState = iota
	running
	stopped
)

// Loop runs callbacks on its own goroutine.
type Loop struct {
	mu   sync.Mutex
	cond *sync.Cond

	qmu   sync.Mutex
	queue []func()
	state loopState
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}

	log *zap.Logger
}

func New(log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  log.Named("mainloop"),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start starts the loop goroutine.
func (l *Loop) Start() error {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	switch l.state {
	case running:
		return ErrRunning
	case stopped:
		return ErrStopped
	}
	l.state = running
	go l.run()
	return nil
}

// Stop terminates the loop goroutine and waits for it to exit. Callbacks that
// are still queued are dropped. Stop must not be called with the lock held.
func (l *Loop) Stop() {
	l.qmu.Lock()
	prev := l.state
	l.state = stopped
	l.queue = nil
	l.qmu.Unlock()

	switch prev {
	case running:
		close(l.quit)
		<-l.done
	case idle:
		close(l.quit)
	}
}

// Lock acquires the loop lock. Callbacks never run while it is held by a caller.
func (l *Loop) Lock() { l.mu.Lock() }

func (l *Loop) Unlock() { l.mu.Unlock() }

// Wait releases the lock, sleeps until Signal is called and reacquires the lock.
// The lock must be held. Wakeups may be spurious, callers check their condition in a loop.
func (l *Loop) Wait() { l.cond.Wait() }

// Signal wakes all goroutines blocked in Wait. It is usually called from a callback.
func (l *Loop) Signal() { l.cond.Broadcast() }

// Post queues fn to run on the loop goroutine with the lock held.
// It never blocks and reports false if the loop was stopped.
func (l *Loop) Post(fn func()) bool {
	l.qmu.Lock()
	if l.state == stopped {
		l.qmu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.qmu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) pop() func() {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	if len(l.queue) == 0 || l.state == stopped {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for fn := l.pop(); fn != nil; fn = l.pop() {
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("callback panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
