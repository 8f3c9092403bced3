package ingest

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/mem"
)

// Batcher groups records into batches of a fixed size and hands each full
// batch to emit. Flush hands over the remainder.
type Batcher[T any] struct {
	size int
	buf  []T
	emit func([]T) error
}

// NewBatcher returns a Batcher emitting batches of size records (minimum 1).
func NewBatcher[T any](size int, emit func([]T) error) *Batcher[T] {
	if size <= 0 {
		size = 1
	}
	return &Batcher[T]{size: size, buf: make([]T, 0, size), emit: emit}
}

// Add appends v and emits the batch once it is full.
func (b *Batcher[T]) Add(v T) error {
	b.buf = append(b.buf, v)
	if len(b.buf) < b.size {
		return nil
	}
	return b.handOff()
}

// Flush emits any partial batch, even a single record.
func (b *Batcher[T]) Flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	return b.handOff()
}

func (b *Batcher[T]) handOff() error {
	batch := b.buf
	// The receiver owns batch from here on.
	b.buf = make([]T, 0, b.size)
	return b.emit(batch)
}

// BatchSizer decides how many records go into one transaction.
type BatchSizer interface {
	BatchSize() int
}

// FixedSize is a BatchSizer that always returns its value.
type FixedSize int

func (f FixedSize) BatchSize() int { return int(f) }

// MemorySizer sizes batches from the memory currently available on the host.
type MemorySizer struct {
	// Available returns available memory in bytes. Defaults to the gopsutil probe.
	Available func() (uint64, error)
}

// BatchSize probes available memory. A failed probe yields the smallest size.
func (m MemorySizer) BatchSize() int {
	probe := m.Available
	if probe == nil {
		probe = availableMemory
	}
	avail, err := probe()
	if err != nil {
		return SizeForMemory(0)
	}
	return SizeForMemory(avail / (1024 * 1024))
}

func availableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, errors.Wrap(err, "probe virtual memory")
	}
	return vm.Available, nil
}

// SizeForMemory is the batch-size step function over available megabytes.
func SizeForMemory(availableMB uint64) int {
	switch {
	case availableMB >= 1024:
		return 16000
	case availableMB >= 512:
		return 8000
	case availableMB >= 256:
		return 4000
	case availableMB >= 128:
		return 2000
	case availableMB >= 64:
		return 1000
	default:
		return 500
	}
}
