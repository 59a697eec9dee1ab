package rendercache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flowquest/internal/logging"
	"flowquest/internal/segment"
)

func testSegment(tag string) segment.Segment {
	return segment.Segment{Data: []byte("FQSEG1 " + tag), Duration: 2}
}

func TestGetOrRenderCachesResult(t *testing.T) {
	c := New(4, 0, nil)
	renders := 0
	render := func(ctx context.Context) (segment.Segment, error) {
		renders++
		return testSegment("a"), nil
	}

	for range 3 {
		seg, err := c.GetOrRender(context.Background(), "fp-a", render)
		if err != nil {
			t.Fatalf("GetOrRender: %v", err)
		}
		if string(seg.Data) != "FQSEG1 a" {
			t.Fatalf("unexpected segment data %q", seg.Data)
		}
	}
	if renders != 1 {
		t.Errorf("renders = %d, want 1", renders)
	}
	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits 1 miss", stats)
	}
}

func TestSingleFlightCoalescesConcurrentRenders(t *testing.T) {
	c := New(4, 0, nil)
	var renders atomic.Int64
	release := make(chan struct{})
	render := func(ctx context.Context) (segment.Segment, error) {
		renders.Add(1)
		<-release
		return testSegment("slow"), nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.GetOrRender(context.Background(), "fp-slow", render)
		}()
	}
	// Let the goroutines pile onto the flight before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := renders.Load(); got != 1 {
		t.Errorf("renders = %d, want 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("waiter %d: %v", i, err)
		}
	}
}

func TestFailedRenderNotCached(t *testing.T) {
	c := New(4, 0, nil)
	boom := errors.New("render exploded")
	calls := 0
	render := func(ctx context.Context) (segment.Segment, error) {
		calls++
		if calls == 1 {
			return segment.Segment{}, boom
		}
		return testSegment("b"), nil
	}

	if _, err := c.GetOrRender(context.Background(), "fp-b", render); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want render failure", err)
	}
	if _, err := c.GetOrRender(context.Background(), "fp-b", render); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if calls != 2 {
		t.Errorf("render calls = %d, want 2 (failure must not be cached)", calls)
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2, 0, nil)
	c.Put("fp-1", testSegment("1"))
	c.Put("fp-2", testSegment("2"))
	if _, ok := c.Get("fp-1"); !ok {
		t.Fatal("fp-1 missing before capacity reached")
	}
	// fp-1 is now most recent, so fp-2 is the eviction victim.
	c.Put("fp-3", testSegment("3"))

	if _, ok := c.Get("fp-2"); ok {
		t.Error("fp-2 should have been evicted")
	}
	if _, ok := c.Get("fp-1"); !ok {
		t.Error("fp-1 should have survived")
	}
	if _, ok := c.Get("fp-3"); !ok {
		t.Error("fp-3 should be present")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(4, time.Minute, nil)
	base := time.Unix(1700000000, 0)
	c.now = func() time.Time { return base }
	c.Put("fp-old", testSegment("old"))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("fp-old"); ok {
		t.Error("expired entry should miss")
	}
}

func TestPinnedEntrySurvivesEvictionAsStale(t *testing.T) {
	c := New(1, 0, nil)
	c.Put("fp-pinned", testSegment("pinned"))
	c.Pin("fp-pinned")
	c.Put("fp-new", testSegment("new"))

	// The pinned entry was evicted by policy: lookups miss, so the next
	// access re-renders, but the payload is retained until unpinned.
	if _, ok := c.Get("fp-pinned"); ok {
		t.Error("stale pinned entry should read as a miss")
	}
	renders := 0
	if _, err := c.GetOrRender(context.Background(), "fp-pinned", func(ctx context.Context) (segment.Segment, error) {
		renders++
		return testSegment("pinned"), nil
	}); err != nil {
		t.Fatalf("GetOrRender: %v", err)
	}
	if renders != 1 {
		t.Errorf("renders = %d, want 1 (stale entry re-renders)", renders)
	}

	c.Unpin("fp-new")
	c.Unpin("fp-pinned")
	stats := c.Stats()
	if stats.Evictions == 0 {
		t.Error("expected eviction counter to advance")
	}
}

func TestCorruptedEntryEvicted(t *testing.T) {
	var logBuf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &logBuf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	c := New(4, 0, logger)
	c.Put("fp-c", testSegment("c"))

	// Flip a payload byte behind the checksum's back.
	c.mu.Lock()
	c.items["fp-c"].seg.Data[0] ^= 0xff
	c.mu.Unlock()

	if _, ok := c.Get("fp-c"); ok {
		t.Fatal("corrupted entry should read as a miss")
	}
	if stats := c.Stats(); stats.Corruptions != 1 {
		t.Errorf("corruptions = %d, want 1", stats.Corruptions)
	}
	if !strings.Contains(logBuf.String(), logging.FieldErrorHint) {
		t.Errorf("corruption warning carries no operator hint: %q", logBuf.String())
	}
	renders := 0
	if _, err := c.GetOrRender(context.Background(), "fp-c", func(ctx context.Context) (segment.Segment, error) {
		renders++
		return testSegment("c"), nil
	}); err != nil {
		t.Fatalf("GetOrRender after corruption: %v", err)
	}
	if renders != 1 {
		t.Errorf("renders = %d, want re-render after corruption", renders)
	}
}

func TestWaiterHonorsContext(t *testing.T) {
	c := New(4, 0, nil)
	release := make(chan struct{})
	go c.GetOrRender(context.Background(), "fp-w", func(ctx context.Context) (segment.Segment, error) {
		<-release
		return testSegment("w"), nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrRender(ctx, "fp-w", func(ctx context.Context) (segment.Segment, error) {
			return segment.Segment{}, fmt.Errorf("should not render")
		})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("waiter err = %v, want context.Canceled", err)
	}
	close(release)
}
