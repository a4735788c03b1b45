package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *CapabilityClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCapabilityClient(server.URL, 5*time.Second, RetryConfig{
		MaxAttempts: 1, BackoffBase: time.Millisecond, BackoffMultiplier: 1, MaxBackoff: time.Millisecond,
	}, logging.NewLogger())
}

func okHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(TaskResult{Summary: "done"}))
	}
}

func TestPoolAcquireReusesHandle(t *testing.T) {
	pool := NewPool(testClient(t, okHandler(t)), 8, logging.NewLogger())
	key := models.TenantKey{TenantID: "t1", EngagementID: "e1"}

	w1, release1, err := pool.Acquire(key, "enrichment")
	require.NoError(t, err)
	_, err = w1.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
	require.NoError(t, err)
	release1()

	w2, release2, err := pool.Acquire(key, "enrichment")
	require.NoError(t, err)
	defer release2()

	// Same handle: the call counter carries across acquisitions.
	assert.Same(t, w1, w2)
	assert.Equal(t, 1, w2.Calls())
	assert.Equal(t, 1, pool.Len())
}

func TestPoolDistinctKeysDistinctHandles(t *testing.T) {
	pool := NewPool(testClient(t, okHandler(t)), 8, logging.NewLogger())

	w1, r1, err := pool.Acquire(models.TenantKey{TenantID: "t1", EngagementID: "e1"}, "enrichment")
	require.NoError(t, err)
	defer r1()
	w2, r2, err := pool.Acquire(models.TenantKey{TenantID: "t2", EngagementID: "e1"}, "enrichment")
	require.NoError(t, err)
	defer r2()
	w3, r3, err := pool.Acquire(models.TenantKey{TenantID: "t1", EngagementID: "e1"}, "tech_debt")
	require.NoError(t, err)
	defer r3()

	assert.NotSame(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.Equal(t, 3, pool.Len())
}

func TestPoolConcurrentAcquire(t *testing.T) {
	pool := NewPool(testClient(t, okHandler(t)), 64, logging.NewLogger())
	key := models.TenantKey{TenantID: "t1", EngagementID: "e1"}

	const goroutines = 32
	workers := make([]*Worker, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, release, err := pool.Acquire(key, "inventory")
			assert.NoError(t, err)
			workers[i] = w
			release()
		}(i)
	}
	wg.Wait()

	// Concurrent acquires for one key all land on one handle.
	for i := 1; i < goroutines; i++ {
		assert.Same(t, workers[0], workers[i])
	}
	assert.Equal(t, 1, pool.Len())
}

func TestPoolEviction(t *testing.T) {
	pool := NewPool(testClient(t, okHandler(t)), 2, logging.NewLogger())

	t.Run("over capacity evicts least recently used", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			key := models.TenantKey{TenantID: fmt.Sprintf("t%d", i), EngagementID: "e1"}
			_, release, err := pool.Acquire(key, "inventory")
			require.NoError(t, err)
			release()
		}
		assert.Equal(t, 2, pool.Len())
	})

	t.Run("checked-out handles survive eviction pressure", func(t *testing.T) {
		pool := NewPool(testClient(t, okHandler(t)), 1, logging.NewLogger())

		held, release, err := pool.Acquire(models.TenantKey{TenantID: "held", EngagementID: "e1"}, "inventory")
		require.NoError(t, err)

		_, r2, err := pool.Acquire(models.TenantKey{TenantID: "other", EngagementID: "e1"}, "inventory")
		require.NoError(t, err)
		r2()

		// The held handle is still the pooled one for its key.
		again, r3, err := pool.Acquire(models.TenantKey{TenantID: "held", EngagementID: "e1"}, "inventory")
		require.NoError(t, err)
		assert.Same(t, held, again)
		r3()
		release()
	})
}

func TestPoolNilClient(t *testing.T) {
	pool := NewPool(nil, 8, logging.NewLogger())
	_, _, err := pool.Acquire(models.TenantKey{TenantID: "t1", EngagementID: "e1"}, "inventory")
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
}

func TestPoolShutdown(t *testing.T) {
	pool := NewPool(testClient(t, okHandler(t)), 8, logging.NewLogger())
	_, release, err := pool.Acquire(models.TenantKey{TenantID: "t1", EngagementID: "e1"}, "inventory")
	require.NoError(t, err)
	release()

	pool.Shutdown()
	assert.Equal(t, 0, pool.Len())
}

func TestWorkerMemoryThreading(t *testing.T) {
	var mu sync.Mutex
	var seenContexts [][]string

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var task TaskSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
		mu.Lock()
		seenContexts = append(seenContexts, task.Context)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		summary := fmt.Sprintf("summary-%d", len(seenContexts))
		require.NoError(t, json.NewEncoder(w).Encode(TaskResult{Summary: summary}))
	})

	pool := NewPool(client, 8, logging.NewLogger())
	key := models.TenantKey{TenantID: "t1", EngagementID: "e1"}
	worker, release, err := pool.Acquire(key, "enrichment")
	require.NoError(t, err)
	defer release()

	for i := 0; i < 3; i++ {
		_, err := worker.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		require.NoError(t, err)
	}

	require.Len(t, seenContexts, 3)
	assert.Empty(t, seenContexts[0])
	assert.Equal(t, []string{"summary-1"}, seenContexts[1])
	assert.Equal(t, []string{"summary-1", "summary-2"}, seenContexts[2])
	assert.Equal(t, 3, worker.Calls())
}

func TestWorkerTenantKeyStamped(t *testing.T) {
	var got TaskSpec
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(TaskResult{}))
	})

	pool := NewPool(client, 8, logging.NewLogger())
	key := models.TenantKey{TenantID: "t1", EngagementID: "e1"}
	worker, release, err := pool.Acquire(key, "strategy")
	require.NoError(t, err)
	defer release()

	_, err = worker.Invoke(context.Background(), TaskSpec{Operation: "recommend"})
	require.NoError(t, err)

	assert.Equal(t, key, got.TenantKey)
	assert.Equal(t, "strategy", got.WorkerKind)
}
