package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

// maxResponseSize limits the capability response body to prevent memory
// exhaustion on a misbehaving provider.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// TaskSpec is a structured unit of analysis work submitted to the capability
// provider. The orchestrator does not know how the provider reasons about it;
// it only relies on this request/response contract.
type TaskSpec struct {
	TenantKey  models.TenantKey `json:"tenant_key"`
	WorkerKind string           `json:"worker_kind"`
	Operation  string           `json:"operation"`
	AssetID    string           `json:"asset_id,omitempty"`
	Dimension  string           `json:"dimension,omitempty"`
	Input      map[string]any   `json:"input,omitempty"`

	// Context carries the worker's accumulated memory for this tenant so the
	// provider can reuse prior analysis within the tenant boundary.
	Context []string `json:"context,omitempty"`
}

// TaskResult is the structured outcome of one capability invocation.
// Score is nil when the provider computed no score.
type TaskResult struct {
	Output  map[string]any `json:"output,omitempty"`
	Score   *float64       `json:"score,omitempty"`
	Summary string         `json:"summary,omitempty"`
}

// RetryConfig holds retry configuration for capability invocations.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for capability calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// CapabilityClient is an HTTP implementation of the capability provider
// contract: submit a structured task, receive a structured result or an
// error, with variable latency and possible failure. Transient failures are
// retried with exponential backoff; fatal failures are surfaced immediately.
type CapabilityClient struct {
	url        string
	httpClient *http.Client
	retry      RetryConfig
	logger     *logging.Logger
}

// NewCapabilityClient creates a new CapabilityClient.
func NewCapabilityClient(url string, timeout time.Duration, retry RetryConfig, logger *logging.Logger) *CapabilityClient {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &CapabilityClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     logger,
	}
}

// Invoke submits a task to the provider and returns its result. A context
// deadline exceeded is returned as-is so callers can record the unit as
// timed out rather than failed.
func (c *CapabilityClient) Invoke(ctx context.Context, task TaskSpec) (*TaskResult, error) {
	var lastErr error
	backoff := c.retry.BackoffBase

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		result, err := c.invokeOnce(ctx, task)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsTransient(err) {
			return nil, err
		}

		if attempt < c.retry.MaxAttempts {
			c.logger.Warn("capability invocation failed, retrying",
				"operation", task.Operation,
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		}
	}

	return nil, lastErr
}

func (c *CapabilityClient) invokeOnce(ctx context.Context, task TaskSpec) (*TaskResult, error) {
	requestBody, err := json.Marshal(task)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to marshal task: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/tasks", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewTransientError(fmt.Errorf("capability request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("failed to read capability response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, NewTransientError(fmt.Errorf("capability returned status %d", resp.StatusCode))
	default:
		return nil, NewFatalError(fmt.Errorf("capability returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result TaskResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to decode capability response: %w", err))
	}

	return &result, nil
}
