package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewOpenAIProvider("test-key")
	require.NoError(t, err)
	provider.baseURL = server.URL

	return provider
}

func chatResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	}
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(Request{}), ErrEmptyPrompt)
	assert.NoError(t, ValidateRequest(Request{Prompt: "introduce the butler"}))
}

func TestGeneratorFunc(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, req Request) (*Result, error) {
		return &Result{Text: "canned", Provider: "func"}, nil
	})

	res, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "canned", res.Text)
	assert.NoError(t, gen.Close())
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	_, err := NewOpenAIProvider("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	provider := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		require.NoError(t, json.NewEncoder(w).Encode(chatResponse("The butler bows stiffly.")))
	})

	res, err := provider.Generate(context.Background(), Request{
		Prompt: "Introduce the butler",
		System: "You are the narrator.",
	})
	require.NoError(t, err)

	assert.Equal(t, "The butler bows stiffly.", res.Text)
	assert.Equal(t, DefaultOpenAIModel, gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestOpenAIProvider_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	provider := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(chatResponse("ok")))
	})

	res, err := provider.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIProvider_FailurePropagates(t *testing.T) {
	provider := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusServiceUnavailable)
	})

	_, err := provider.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOpenAIProvider_EmptyPromptRejected(t *testing.T) {
	provider := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API must not be called for an invalid request")
	})

	_, err := provider.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}
