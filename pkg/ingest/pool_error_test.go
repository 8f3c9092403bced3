package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/japaniel/jisho/pkg/db"
	"github.com/japaniel/jisho/pkg/workerpool"
)

// failingPool always returns an error on Submit to simulate a projection failure.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) SubmitCtx(ctx context.Context, job workerpool.Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestImportHandlesSubmitError(t *testing.T) {
	conn := setupDB(t)

	im := newTestImporter(conn, 1)
	// Inject failing pool so the first full-text projection fails
	im.PoolFactory = func(workers, queue int) PoolInterface { return &failingPool{} }

	// Run import and expect it to return quickly with the submit error
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := im.ImportDictionary(ctx, []byte(sampleDict))
	if err == nil {
		t.Fatalf("expected submit error, got nil")
	}
	if out.Kind != Failed {
		t.Fatalf("expected Failed outcome, got %v", out.Kind)
	}
	n, err := db.CountEntries(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no entries written, got %d", n)
	}
}
