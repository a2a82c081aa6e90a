package openaiLLM

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/KnowledgeAPI/internal/rag/llm"
)

func TestComplete_SendsPromptAndOptions(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Paris is the capital of France."}}]
		}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-3.5-turbo", srv.Client(), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "What is the capital of France?", llm.Options{Temperature: 0.2, MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", out)

	assert.Equal(t, "gpt-3.5-turbo", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.EqualValues(t, 512, body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "What is the capital of France?", messages[0].(map[string]any)["content"])
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-3.5-turbo", srv.Client(), option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "q", llm.Options{})
	assert.Error(t, err)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("", "gpt-3.5-turbo", nil)
	assert.Error(t, err)
}
