package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/llm"
	_ "github.com/gatekeep-dev/gatekeep/llm/providers" // Register providers
	"github.com/gatekeep-dev/gatekeep/model"
	"github.com/gatekeep-dev/gatekeep/prompt"
)

func testPayload() *prompt.Payload {
	return &prompt.Payload{System: "You are a test persona.", User: "Hello"}
}

func testRegistry(url string) *model.Registry {
	return model.NewRegistry(map[string]*model.EndpointConfig{
		"test-model": {
			Provider: "ollama",
			URL:      url,
			Model:    "test-model",
		},
	})
}

func successBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1677652288,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestClient_Invoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody("Hello! How can I help you?"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	resp, err := client.Invoke(context.Background(), testPayload(), "test-model", 5*time.Second, 2)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, 1, resp.Attempts)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClient_Invoke_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody("recovered"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1,
			MaxBackoff:        time.Millisecond,
		}))

	resp, err := client.Invoke(context.Background(), testPayload(), "test-model", 5*time.Second, 2)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Invoke_AttemptBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1,
			MaxBackoff:        time.Millisecond,
		}))

	_, err := client.Invoke(context.Background(), testPayload(), "test-model", 5*time.Second, 2)
	require.Error(t, err)
	// maxRetries+1 total attempts, never more.
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, llm.KindRateLimited, llm.KindOf(err))
}

func TestClient_Invoke_FatalErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	_, err := client.Invoke(context.Background(), testPayload(), "test-model", 5*time.Second, 5)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, llm.IsTransient(err))
	assert.Equal(t, llm.KindInvalidResponse, llm.KindOf(err))
}

func TestClient_Invoke_MalformedResponseIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	_, err := client.Invoke(context.Background(), testPayload(), "test-model", 5*time.Second, 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, llm.IsTransient(err))
}

func TestClient_Invoke_PerCallTimeoutIsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody("eventually"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1,
			MaxBackoff:        time.Millisecond,
		}))

	resp, err := client.Invoke(context.Background(), testPayload(), "test-model", 50*time.Millisecond, 2)
	require.NoError(t, err)
	assert.Equal(t, "eventually", resp.Content)
	assert.Equal(t, 2, resp.Attempts)
}

func TestClient_Invoke_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Invoke(ctx, testPayload(), "test-model", 5*time.Second, 2)
	require.Error(t, err)
	assert.Equal(t, llm.KindTimeout, llm.KindOf(err))
}

func TestClient_Invoke_InputValidation(t *testing.T) {
	client := llm.NewClient(testRegistry("http://unused"))

	_, err := client.Invoke(context.Background(), nil, "test-model", time.Second, 0)
	assert.Error(t, err)

	_, err = client.Invoke(context.Background(), testPayload(), "", time.Second, 0)
	assert.Error(t, err)
}
