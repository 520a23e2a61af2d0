// Package reader watches input device files, one goroutine per device, and
// hands every key and switch event to a Handler.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/micha/triggerhappy/logging"
)

var (
	// ErrAlreadyWatched is returned when adding a device that has a worker.
	ErrAlreadyWatched = errors.New("device already watched")
	// ErrNotWatched is returned when removing a device without a worker.
	ErrNotWatched = errors.New("device not watched")
	// ErrPoolClosed is returned when adding a device after Close.
	ErrPoolClosed = errors.New("reader pool closed")
)

// Handler processes events. Calls come from every device goroutine, so
// implementations serialise them themselves.
type Handler interface {
	HandleEvent(ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev Event)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }

// Opener opens a device for reading.
type Opener func(path string) (io.ReadCloser, error)

// Pool owns one worker per watched device.
type Pool struct {
	handler Handler
	open    Opener
	log     zerolog.Logger

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithOpener replaces os.Open for opening devices.
func WithOpener(open Opener) Option {
	return func(p *Pool) {
		p.open = open
	}
}

// NewPool returns an empty pool delivering events to h.
func NewPool(h Handler, opts ...Option) *Pool {
	p := &Pool{
		handler: h,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		log:     logging.GetLogger("reader"),
		workers: make(map[string]*worker),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type worker struct {
	path      string
	dev       io.ReadCloser
	stopping  atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// close releases the device exactly once. Closing the file from another
// goroutine also wakes a Read blocked on it.
func (w *worker) close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.dev.Close()
	})
	return err
}

func (w *worker) stop() {
	w.stopping.Store(true)
	w.close()
	<-w.done
}

// Add opens the device and starts its worker.
func (p *Pool) Add(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if _, ok := p.workers[path]; ok {
		return fmt.Errorf("%s: %w", path, ErrAlreadyWatched)
	}

	dev, err := p.open(path)
	if err != nil {
		return fmt.Errorf("unable to open device file %s: %w", path, err)
	}

	w := &worker{path: path, dev: dev, done: make(chan struct{})}
	p.workers[path] = w
	go p.run(w)

	p.log.Info().Str("device", path).Str("name", deviceName(path)).Msg("Watching device")
	return nil
}

// Remove stops the device's worker and returns once it has exited and the
// device is closed.
func (p *Pool) Remove(path string) error {
	p.mu.Lock()
	w, ok := p.workers[path]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotWatched)
	}

	// the registry lock is not held here: an exiting worker takes it to
	// deregister itself
	w.stop()
	p.forget(w)

	p.log.Info().Str("device", path).Msg("Stopped watching device")
	return nil
}

// Close stops every worker and waits for all of them. Later calls to Add
// fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	workers := make([]*worker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		w.stopping.Store(true)
		w.close()
	}
	for _, w := range workers {
		<-w.done
		p.forget(w)
	}
}

// Paths returns the watched device paths in lexical order.
func (p *Pool) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	paths := make([]string, 0, len(p.workers))
	for path := range p.workers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of watched devices.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *Pool) forget(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workers[w.path] == w {
		delete(p.workers, w.path)
	}
}

func (p *Pool) run(w *worker) {
	defer close(w.done)
	defer w.close()

	buf := make([]byte, RecordSize)
	for {
		n, err := w.dev.Read(buf)
		if err != nil || n != RecordSize {
			if w.stopping.Load() {
				return
			}
			p.log.Error().Err(err).Str("device", w.path).Int("bytes", n).Msg("Read error")
			p.forget(w)
			return
		}

		ev, _ := Decode(buf)
		if !ev.Tracked() {
			continue
		}
		p.handler.HandleEvent(ev)
	}
}
