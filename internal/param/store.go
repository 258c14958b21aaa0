package param

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-waveshaper/internal/logging"
)

var (
	// ErrConfiguration indicates a fatal session configuration problem: processing
	// without an oversample factor, or changing a construction-only control mid-session.
	ErrConfiguration = errors.New("waveshaper configuration error")

	// ErrUnknownParameter indicates a name that is not in the control table.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// HalfWave is the shape parameter set for one signal polarity.
type HalfWave struct {
	PregainDB   float64
	ShapeA      float64
	ShapeB      float64
	ShapeExp    float64
	Power       float64
	Clamp       float64
	ClampSmooth float64
	Scale       float64
	Bias        float64
	Exponent    float64
}

// Snapshot is an immutable, internally consistent copy of every control.
// Values obtained from Store.Snapshot must not be modified.
type Snapshot struct {
	Oversample int
	Curve      int
	Symmetric  bool
	PostgainDB float64
	Pos        HalfWave
	Neg        HalfWave

	// Version increases by one with every successful Set.
	Version uint64
}

// Change describes one successful Set.
type Change struct {
	Name    string
	Value   float64
	Version uint64
}

// Store owns the current parameter values.
//
// Writers serialize on an internal mutex and publish a complete new Snapshot;
// readers load the current pointer without locking.
type Store struct {
	entries []entry
	index   map[string]int

	current atomic.Pointer[Snapshot]
	session atomic.Bool
	mu      sync.Mutex

	subMu   sync.RWMutex
	subs    map[uint64]func(Change)
	nextSub uint64

	log logrus.FieldLogger
}

// NewStore creates a store with every control at its default value.
func NewStore(log logrus.FieldLogger) *Store {
	s := &Store{
		entries: buildTable(),
		index:   make(map[string]int),
		subs:    make(map[uint64]func(Change)),
		log:     logging.OrDiscard(log),
	}

	snap := &Snapshot{}
	for i, e := range s.entries {
		s.index[e.Name] = i
		e.set(snap, e.Default)
	}
	s.current.Store(snap)

	return s
}

// DefaultSnapshot returns a snapshot holding every default value.
func DefaultSnapshot() *Snapshot {
	snap := &Snapshot{}
	for _, e := range buildTable() {
		e.set(snap, e.Default)
	}
	return snap
}

func (s *Store) lookup(name string) (*entry, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return &s.entries[i], nil
}

// Names returns all control names in table order.
func (s *Store) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Describe returns the descriptor for name.
func (s *Store) Describe(name string) (Descriptor, error) {
	e, err := s.lookup(name)
	if err != nil {
		return Descriptor{}, err
	}
	return e.Descriptor, nil
}

// Get returns the current value of name.
func (s *Store) Get(name string) (float64, error) {
	e, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return e.get(s.current.Load()), nil
}

// Snapshot returns the current immutable snapshot. Safe from any goroutine.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Set clamps v into range, stores it and returns the stored value.
// Construction-only controls are rejected while a session is active.
func (s *Store) Set(name string, v float64) (float64, error) {
	e, err := s.lookup(name)
	if err != nil {
		return 0, err
	}

	stored := e.Clamp(v)

	s.mu.Lock()
	if !e.Controllable && s.session.Load() {
		s.mu.Unlock()
		return e.get(s.current.Load()), fmt.Errorf("%w: %q cannot change while a session is active", ErrConfiguration, name)
	}

	next := *s.current.Load()
	e.set(&next, stored)
	next.Version++
	s.current.Store(&next)
	s.mu.Unlock()

	s.notify(Change{Name: name, Value: stored, Version: next.Version})
	return stored, nil
}

// Reset restores every default. Construction-only controls are skipped while a
// session is active.
func (s *Store) Reset() {
	s.mu.Lock()
	next := *s.current.Load()
	active := s.session.Load()
	for _, e := range s.entries {
		if !e.Controllable && active {
			continue
		}
		e.set(&next, e.Default)
	}
	next.Version++
	s.current.Store(&next)
	s.mu.Unlock()

	s.notify(Change{Version: next.Version})
}

// BeginSession freezes construction-only controls and returns the snapshot the
// session starts from.
func (s *Store) BeginSession() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Store(true)
	snap := s.current.Load()
	s.log.WithFields(logrus.Fields{
		"oversample": snap.Oversample,
		"version":    snap.Version,
	}).Debug("parameter session started")
	return snap
}

// EndSession unfreezes construction-only controls.
func (s *Store) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Swap(false) {
		s.log.Debug("parameter session ended")
	}
}

// SessionActive reports whether BeginSession is in effect.
func (s *Store) SessionActive() bool {
	return s.session.Load()
}

// Subscribe registers fn to run after every successful mutation. fn runs on the
// mutating goroutine and must not call Set. The returned func unregisters fn.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.RLock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
