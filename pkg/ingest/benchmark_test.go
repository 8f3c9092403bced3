package ingest

import (
	"context"
	"fmt"
	"strconv"
	"testing"
)

func generateBenchmarkDict(n int) []byte {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return []byte(dictOf(ids...))
}

func BenchmarkImportDictionary(b *testing.B) {
	data := generateBenchmarkDict(1000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupDB(b)
		im := newTestImporter(conn, 100)
		b.StartTimer()

		_, err := im.ImportDictionary(context.Background(), data)
		b.StopTimer()
		if err != nil {
			b.Fatalf("ImportDictionary failed: %v", err)
		}
		conn.Close()
	}
}

func BenchmarkImportQueueCapacity(b *testing.B) {
	// Compare different queue capacities; a deeper queue lets the parser run further ahead.
	data := generateBenchmarkDict(1000)

	for _, capacity := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("Queue_%d", capacity), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn := setupDB(b)
				im := newTestImporter(conn, 100)
				im.QueueCapacity = capacity
				b.StartTimer()

				_, err := im.ImportDictionary(context.Background(), data)
				b.StopTimer()
				if err != nil {
					b.Fatalf("ImportDictionary failed: %v", err)
				}
				conn.Close()
			}
		})
	}
}
