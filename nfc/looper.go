package nfc

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultLooperQueueSize is the task buffer used when NewLooper gets a size <= 0.
const DefaultLooperQueueSize = 64

// Looper is the UI execution context: a bounded task queue drained by a
// single goroutine. Everything that touches the method channel runs here.
type Looper struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

// NewLooper creates a looper with room for size pending tasks.
func NewLooper(size int, logger zerolog.Logger) *Looper {
	if size <= 0 {
		size = DefaultLooperQueueSize
	}
	return &Looper{
		tasks:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "looper").Logger(),
	}
}

// Post enqueues task without blocking. It returns false and drops the task
// when the queue is full or the looper has quit.
func (l *Looper) Post(task func()) bool {
	if task == nil {
		return false
	}

	select {
	case <-l.done:
		l.logger.Debug().Msg("looper stopped, task dropped")
		return false
	default:
	}

	select {
	case l.tasks <- task:
		return true
	default:
		l.logger.Warn().Int("capacity", cap(l.tasks)).Msg("looper queue full, task dropped")
		return false
	}
}

// Run drains the queue until ctx is cancelled. Tasks still queued at that
// point are discarded.
func (l *Looper) Run(ctx context.Context) {
	defer l.quit()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			l.run(task)
		}
	}
}

// Done is closed once Run has returned.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

func (l *Looper) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("looper task panicked")
		}
	}()
	task()
}

func (l *Looper) quit() {
	l.once.Do(func() {
		close(l.done)
	})
}
