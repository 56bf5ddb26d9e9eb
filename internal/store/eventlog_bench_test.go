package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/streaming"
)

func newBenchStore(b *testing.B) (*LibSQLStore, *EventLog) {
	b.Helper()
	dir := b.TempDir()
	s, err := NewLibSQLStore("file:" + dir + "/bench.db")
	if err != nil {
		b.Fatal(err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = s.Close() })
	return s, NewEventLog(s)
}

func seedBenchSession(b *testing.B, s *LibSQLStore) string {
	b.Helper()
	id := uuid.New().String()
	if err := s.CreateSession(context.Background(), &Session{
		ID:     id,
		Widget: "bench",
	}); err != nil {
		b.Fatal(err)
	}
	return id
}

func BenchmarkEventAppend_Sequential(b *testing.B) {
	s, el := newBenchStore(b)
	sessID := seedBenchSession(b, s)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		el.Append(ctx, &Event{
			SessionID: sessID,
			Path:      "bench/x",
			Type:      streaming.EventValueChanged,
			Payload:   json.RawMessage(`{"value":1}`),
		})
	}
}

func BenchmarkEventAppend_MultipleSessions(b *testing.B) {
	s, el := newBenchStore(b)
	ctx := context.Background()

	sessIDs := make([]string, 100)
	for i := range sessIDs {
		sessIDs[i] = seedBenchSession(b, s)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		el.Append(ctx, &Event{
			SessionID: sessIDs[i%len(sessIDs)],
			Path:      "bench/x",
			Type:      streaming.EventValueChanged,
			Payload:   json.RawMessage(`{"value":1}`),
		})
	}
}

func BenchmarkEventAppend_Concurrent(b *testing.B) {
	for _, writers := range []int{10, 50, 100} {
		b.Run(fmt.Sprintf("writers=%d", writers), func(b *testing.B) {
			benchEventAppendConcurrent(b, writers)
		})
	}
}

func benchEventAppendConcurrent(b *testing.B, writers int) {
	s, el := newBenchStore(b)
	ctx := context.Background()

	// Each writer gets its own session to avoid sequence contention.
	sessIDs := make([]string, writers)
	for i := range sessIDs {
		sessIDs[i] = seedBenchSession(b, s)
	}

	b.ResetTimer()
	var wg sync.WaitGroup
	perWriter := b.N / writers
	if perWriter == 0 {
		perWriter = 1
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(sessID string) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				el.Append(ctx, &Event{
					SessionID: sessID,
					Path:      fmt.Sprintf("bench/n%d", j%10),
					Type:      streaming.EventValueChanged,
					Payload:   json.RawMessage(`{"value":1}`),
				})
			}
		}(sessIDs[w])
	}
	wg.Wait()
}

func BenchmarkEventReplay(b *testing.B) {
	for _, count := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("events=%d", count), func(b *testing.B) {
			s, el := newBenchStore(b)
			sessID := seedBenchSession(b, s)
			ctx := context.Background()

			for i := 0; i < count; i++ {
				el.Append(ctx, &Event{
					SessionID: sessID,
					Path:      fmt.Sprintf("bench/n%d", i%10),
					Type:      streaming.EventValueChanged,
					Payload:   json.RawMessage(fmt.Sprintf(`{"value":%d}`, i)),
				})
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				el.Replay(ctx, sessID)
			}
		})
	}
}
