// Package checkpoint persists import progress: a running count per phase and
// a marker per corpus recording when the last run started and finished.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketPhases = []byte("phases")
	bucketRuns   = []byte("runs")
)

// Run records one import run of a corpus.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Count       int        `json:"count" yaml:"count"`
}

// Interrupted reports whether the run started but never completed.
func (r Run) Interrupted() bool { return r.CompletedAt == nil }

// Store is a bbolt-backed checkpoint store.
type Store struct {
	db *bolt.DB
	// Now returns the current time. Defaults to time.Now().
	Now func() time.Time
}

// Open opens or creates the checkpoint file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	db, err := bolt.Open(path, 0o666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint file %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketPhases, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "creating bucket: %s", b)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, Now: time.Now}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error { return s.db.Close() }

// Save stores the cumulative count reached by phase.
func (s *Store) Save(phase string, count int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(count))
		return tx.Bucket(bucketPhases).Put([]byte(phase), buf[:])
	})
}

// Load returns the stored count for phase.
func (s *Store) Load(phase string) (count int, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPhases).Get([]byte(phase))
		if len(v) != 8 {
			return nil
		}
		count, ok = int(binary.BigEndian.Uint64(v)), true
		return nil
	})
	return count, ok, err
}

// Phases returns every stored phase count.
func (s *Store) Phases() (map[string]int, error) {
	out := map[string]int{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPhases).ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				out[string(k)] = int(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	return out, err
}

// BeginRun marks the start of a run for corpus, replacing any previous marker.
func (s *Store) BeginRun(corpus, runID string) error {
	return s.putRun(corpus, Run{ID: runID, StartedAt: s.Now().UTC()})
}

// CompleteRun marks the run as finished with count records imported.
func (s *Store) CompleteRun(corpus, runID string, count int) error {
	r, ok, err := s.Run(corpus)
	if err != nil {
		return err
	}
	if !ok || r.ID != runID {
		r = Run{ID: runID, StartedAt: s.Now().UTC()}
	}
	done := s.Now().UTC()
	r.CompletedAt = &done
	r.Count = count
	return s.putRun(corpus, r)
}

// Run returns the marker of the last run of corpus.
func (s *Store) Run(corpus string) (r Run, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte(corpus))
		if v == nil {
			return nil
		}
		ok = true
		return errors.Wrapf(json.Unmarshal(v, &r), "decode run marker %s", corpus)
	})
	return r, ok, err
}

func (s *Store) putRun(corpus string, r Run) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(corpus), b)
	})
}

// Memory is an in-process checkpoint store for tests and one-off imports.
type Memory struct {
	mu     sync.Mutex
	phases map[string]int
	runs   map[string]Run
	// Saves lists every Save call in order.
	Saves []Saved
}

// Saved is one recorded Save call.
type Saved struct {
	Phase string
	Count int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{phases: map[string]int{}, runs: map[string]Run{}}
}

func (m *Memory) Save(phase string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases[phase] = count
	m.Saves = append(m.Saves, Saved{Phase: phase, Count: count})
	return nil
}

func (m *Memory) Load(phase string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.phases[phase]
	return n, ok, nil
}

func (m *Memory) Phases() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.phases))
	for k, v := range m.phases {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) BeginRun(corpus, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[corpus] = Run{ID: runID, StartedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) CompleteRun(corpus, runID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.runs[corpus]
	if r.ID != runID {
		r = Run{ID: runID, StartedAt: time.Now().UTC()}
	}
	done := time.Now().UTC()
	r.CompletedAt = &done
	r.Count = count
	m.runs[corpus] = r
	return nil
}

func (m *Memory) Run(corpus string) (Run, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[corpus]
	return r, ok, nil
}

// SavedPhases returns the distinct phases saved, sorted.
func (m *Memory) SavedPhases() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.phases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
