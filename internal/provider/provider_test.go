package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("carrier-pigeon", Options{APIKey: "k"})
	require.Error(t, err)
}

func TestNormalizeAnthropicBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                              anthropicDefaultBaseURL,
		"https://api.anthropic.com/v1/": "https://api.anthropic.com",
		" https://proxy.local ":         "https://proxy.local",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeAnthropicBaseURL(in), "input %q", in)
	}
}

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "sk-ant-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "Hello "},
				{"type": "text", "text": "there"},
			},
			"usage": map[string]any{"input_tokens": 3, "output_tokens": 2},
		})
	}))
	defer server.Close()

	p := NewAnthropic(Options{APIKey: "sk-ant-test", BaseURL: server.URL})
	defer p.Close()

	got, err := p.Complete(t.Context(), "@gemini hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", got)
}

func TestAnthropicErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer server.Close()

	p := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL})
	_, err := p.Complete(t.Context(), "hi")

	require.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Hi!"},
			}},
		})
	}))
	defer server.Close()

	p := NewOpenAI(Options{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	defer p.Close()

	got, err := p.Complete(t.Context(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", got)
}

func TestOpenAIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL + "/v1/"})
	_, err := p.Complete(t.Context(), "hi")

	require.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, int32(1), calls.Load())
}
