package memory

import (
	"os"
	"os/signal"
	"sync"
)

// EvictionSource notifies subscribers when the memory tier should be
// emptied, for example under memory pressure.
type EvictionSource interface {
	// Subscribe registers fn and returns a function that unregisters it.
	Subscribe(fn func()) (cancel func())
}

// Trigger is an EvictionSource fired explicitly.
type Trigger struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func()
}

// NewTrigger creates a trigger with no subscribers.
func NewTrigger() *Trigger {
	return &Trigger{subs: make(map[uint64]func())}
}

// Subscribe implements EvictionSource.
func (t *Trigger) Subscribe(fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	t.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Fire calls every subscriber synchronously.
func (t *Trigger) Fire() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Subscribers returns the number of registered subscribers.
func (t *Trigger) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// SignalSource fires when the process receives one of its OS signals.
type SignalSource struct {
	*Trigger

	signals []os.Signal
	sigCh   chan os.Signal
	stopCh  chan struct{}
	once    sync.Once
	stop    sync.Once
}

// NewSignalSource creates a source for sigs. With no arguments it listens
// for the platform's default memory-pressure signal (SIGUSR1 on Unix).
func NewSignalSource(sigs ...os.Signal) *SignalSource {
	if len(sigs) == 0 {
		sigs = defaultSignals()
	}
	return &SignalSource{
		Trigger: NewTrigger(),
		signals: sigs,
		sigCh:   make(chan os.Signal, 1),
		stopCh:  make(chan struct{}),
	}
}

// Subscribe implements EvictionSource. Signal delivery starts with the
// first subscription.
func (s *SignalSource) Subscribe(fn func()) func() {
	s.once.Do(func() {
		if len(s.signals) == 0 {
			return
		}
		signal.Notify(s.sigCh, s.signals...)
		go s.loop()
	})
	return s.Trigger.Subscribe(fn)
}

// Stop stops listening for signals.
func (s *SignalSource) Stop() {
	s.stop.Do(func() {
		signal.Stop(s.sigCh)
		close(s.stopCh)
	})
}

func (s *SignalSource) loop() {
	for {
		select {
		case <-s.sigCh:
			s.Fire()
		case <-s.stopCh:
			return
		}
	}
}
