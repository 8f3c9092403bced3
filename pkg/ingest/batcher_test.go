package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcherFlushesRemainder(t *testing.T) {
	const size = 3
	var sizes []int
	b := NewBatcher(size, func(batch []int) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	for i := 0; i < size+1; i++ {
		require.NoError(t, b.Add(i))
	}
	require.NoError(t, b.Flush())
	assert.Equal(t, []int{size, 1}, sizes)

	// Nothing pending: Flush emits nothing.
	require.NoError(t, b.Flush())
	assert.Len(t, sizes, 2)
}

func TestBatcherHandsOverOwnership(t *testing.T) {
	var got [][]string
	b := NewBatcher(2, func(batch []string) error {
		got = append(got, batch)
		return nil
	})
	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, b.Add(s))
	}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, got)
}

func TestBatcherPropagatesEmitError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBatcher(1, func([]int) error { return boom })
	assert.Equal(t, boom, b.Add(1))
}

func TestSizeForMemory(t *testing.T) {
	tests := []struct {
		mb   uint64
		want int
	}{
		{4096, 16000},
		{1024, 16000},
		{1023, 8000},
		{512, 8000},
		{300, 4000},
		{128, 2000},
		{64, 1000},
		{63, 500},
		{0, 500},
	}
	for _, tt := range tests {
		if got := SizeForMemory(tt.mb); got != tt.want {
			t.Errorf("SizeForMemory(%d) = %d; want %d", tt.mb, got, tt.want)
		}
	}
}

func TestMemorySizer(t *testing.T) {
	s := MemorySizer{Available: func() (uint64, error) { return 200 << 20, nil }}
	assert.Equal(t, 2000, s.BatchSize())

	s = MemorySizer{Available: func() (uint64, error) { return 0, errors.New("no probe") }}
	assert.Equal(t, 500, s.BatchSize())

	assert.Equal(t, 7, FixedSize(7).BatchSize())
}
