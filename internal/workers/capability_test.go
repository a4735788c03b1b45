package workers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Millisecond,
	}
}

func TestCapabilityClientInvoke(t *testing.T) {
	t.Run("decodes a successful result", func(t *testing.T) {
		score := 0.9
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/tasks", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var task TaskSpec
			require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
			assert.Equal(t, "score_tech_debt", task.Operation)

			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(TaskResult{
				Output:  map[string]any{"finding": "eol runtime"},
				Score:   &score,
				Summary: "scored",
			}))
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(1), logging.NewLogger())
		result, err := client.Invoke(context.Background(), TaskSpec{
			TenantKey: models.TenantKey{TenantID: "t1", EngagementID: "e1"},
			Operation: "score_tech_debt",
		})
		require.NoError(t, err)
		assert.Equal(t, 0.9, *result.Score)
		assert.Equal(t, "scored", result.Summary)
		assert.Equal(t, "eol runtime", result.Output["finding"])
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(TaskResult{Summary: "third time"}))
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(3), logging.NewLogger())
		result, err := client.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		require.NoError(t, err)
		assert.Equal(t, "third time", result.Summary)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("exhausted retries surface the last transient error", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(3), logging.NewLogger())
		_, err := client.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("fatal failures are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(3), logging.NewLogger())
		_, err := client.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		require.Error(t, err)
		assert.False(t, IsTransient(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rate limiting is transient", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(TaskResult{}))
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(2), logging.NewLogger())
		_, err := client.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		assert.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("context deadline returned as-is", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Drain the body so the server detects the client disconnect and
			// cancels the request context; otherwise Close deadlocks.
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(3), logging.NewLogger())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.Invoke(ctx, TaskSpec{Operation: "enrich"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed response body is fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		client := NewCapabilityClient(server.URL, 5*time.Second, fastRetry(3), logging.NewLogger())
		_, err := client.Invoke(context.Background(), TaskSpec{Operation: "enrich"})
		require.Error(t, err)
		assert.False(t, IsTransient(err))
	})
}
