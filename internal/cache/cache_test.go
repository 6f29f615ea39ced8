package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
)

func newTestCache(t *testing.T, capacity int, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(capacity, ttl, 0, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func resultFor(subject string) recommendation.Result {
	return recommendation.Result{
		SubjectID: subject,
		Entries:   []recommendation.Entry{{CandidateID: "cand-1", Score: 0.9}},
		Total:     1,
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	if _, err := New(0, time.Minute, 0, nil, nil, nil); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, err := New(10, 0, 0, nil, nil, nil); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestGetOrCompute_HitSkipsRecompute(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		return resultFor("c-1"), nil
	}

	first, err := c.GetOrCompute(context.Background(), "k1", compute)
	if err != nil {
		t.Fatalf("first GetOrCompute: %v", err)
	}
	if first.Key != "k1" {
		t.Errorf("Key = %q, want %q", first.Key, "k1")
	}
	if first.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not set on stored result")
	}

	second, err := c.GetOrCompute(context.Background(), "k1", compute)
	if err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
	if second.SubjectID != first.SubjectID || second.ExpiresAt != first.ExpiresAt {
		t.Errorf("hit returned different result: %+v vs %+v", second, first)
	}
}

func TestGetOrCompute_TTLExpiryRecomputes(t *testing.T) {
	c := newTestCache(t, 10, 20*time.Millisecond)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		return resultFor("c-1"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "k1", compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := c.GetOrCompute(context.Background(), "k1", compute); err != nil {
		t.Fatalf("GetOrCompute after expiry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("compute ran %d times, want 2", got)
	}
}

func TestGetOrCompute_LRUEviction(t *testing.T) {
	c := newTestCache(t, 2, time.Minute)

	var calls atomic.Int64
	computeFor := func(subject string) ComputeFunc {
		return func(ctx context.Context) (recommendation.Result, error) {
			calls.Add(1)
			return resultFor(subject), nil
		}
	}

	for _, key := range []string{"a", "b", "c"} {
		if _, err := c.GetOrCompute(context.Background(), key, computeFor(key)); err != nil {
			t.Fatalf("GetOrCompute(%q): %v", key, err)
		}
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	// "a" was least recently used and must have been evicted.
	if _, err := c.GetOrCompute(context.Background(), "a", computeFor("a")); err != nil {
		t.Fatalf("GetOrCompute(a): %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("compute ran %d times, want 4 (a evicted and recomputed)", got)
	}

	// "c" must still be cached.
	if _, err := c.GetOrCompute(context.Background(), "c", computeFor("c")); err != nil {
		t.Fatalf("GetOrCompute(c): %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("compute ran %d times, want 4 (c still cached)", got)
	}
}

func TestGetOrCompute_AccessRefreshesRecency(t *testing.T) {
	c := newTestCache(t, 2, time.Minute)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		return resultFor("x"), nil
	}

	mustGet := func(key string) {
		t.Helper()
		if _, err := c.GetOrCompute(context.Background(), key, compute); err != nil {
			t.Fatalf("GetOrCompute(%q): %v", key, err)
		}
	}

	mustGet("a")
	mustGet("b")
	mustGet("a") // refresh "a": now "b" is the LRU entry
	mustGet("c") // evicts "b"

	calls.Store(0)
	mustGet("a")
	if got := calls.Load(); got != 0 {
		t.Errorf("a recomputed after refresh, compute ran %d times", got)
	}
	mustGet("b")
	if got := calls.Load(); got != 1 {
		t.Errorf("b should have been evicted, compute ran %d times, want 1", got)
	}
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return resultFor("c-1"), nil
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]recommendation.Result, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "k1", compute)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].SubjectID != "c-1" {
			t.Errorf("caller %d: subject = %q", i, results[i].SubjectID)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
}

func TestGetOrCompute_ErrorsNotCached(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	wantErr := errors.New("upstream down")
	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		if calls.Add(1) == 1 {
			return recommendation.Result{}, wantErr
		}
		return resultFor("c-1"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "k1", compute); !errors.Is(err, wantErr) {
		t.Fatalf("first call: got %v, want %v", err, wantErr)
	}
	res, err := c.GetOrCompute(context.Background(), "k1", compute)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if res.SubjectID != "c-1" {
		t.Errorf("subject = %q, want c-1", res.SubjectID)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("compute ran %d times, want 2 (error must not be cached)", got)
	}
}

func TestGetOrCompute_CallerCancellationDoesNotAbortSharedWork(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		select {
		case <-ctx.Done():
			return recommendation.Result{}, ctx.Err()
		case <-time.After(60 * time.Millisecond):
			return resultFor("c-1"), nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.GetOrCompute(ctx, "k1", compute); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("canceled caller: got %v, want deadline exceeded", err)
	}

	// The detached computation finishes and stores the entry.
	time.Sleep(100 * time.Millisecond)
	res, err := c.GetOrCompute(context.Background(), "k1", compute)
	if err != nil {
		t.Fatalf("follow-up call: %v", err)
	}
	if res.SubjectID != "c-1" {
		t.Errorf("subject = %q, want c-1", res.SubjectID)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1", got)
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t, 10, time.Minute)

	var calls atomic.Int64
	compute := func(ctx context.Context) (recommendation.Result, error) {
		calls.Add(1)
		return resultFor("c-1"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "k1", compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	c.Invalidate("k1")
	if _, err := c.GetOrCompute(context.Background(), "k1", compute); err != nil {
		t.Fatalf("GetOrCompute after invalidate: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("compute ran %d times, want 2", got)
	}
}

func TestJanitor_SweepsExpiredEntries(t *testing.T) {
	c, err := New(10, 15*time.Millisecond, 10*time.Millisecond, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, err := c.GetOrCompute(context.Background(), key, func(ctx context.Context) (recommendation.Result, error) {
			return resultFor(key), nil
		}); err != nil {
			t.Fatalf("GetOrCompute(%q): %v", key, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Len() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("janitor did not sweep expired entries, Len = %d", c.Len())
}
