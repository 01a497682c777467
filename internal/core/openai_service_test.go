package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, wantDimensions any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			require.Equal(t, "chat-model", body["model"])
			w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Paris."},"finish_reason":"stop"}]}`))
		case "/v1/embeddings":
			require.Equal(t, "embed-model", body["model"])
			require.Equal(t, wantDimensions, body["dimensions"])
			w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"embed-model"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIServiceGenerateAndEmbed(t *testing.T) {
	srv := newOpenAITestServer(t, nil)
	svc := NewOpenAIService("key", srv.URL+"/v1", "chat-model", "embed-model", 0)

	answer, err := svc.Generate(context.Background(), "capital of France?")
	require.NoError(t, err)
	require.Equal(t, "Paris.", answer)

	vec, err := svc.Embed(context.Background(), "France")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 0.25}, vec)
	require.Equal(t, "embed-model", svc.ModelName())
}

func TestOpenAIServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	svc := NewOpenAIService("key", srv.URL+"/v1", "chat-model", "embed-model", 0)
	_, err := svc.Generate(context.Background(), "hi")
	require.Error(t, err)
	_, err = svc.Embed(context.Background(), "hi")
	require.Error(t, err)
}

func TestOpenAIServiceRequestsDimensions(t *testing.T) {
	srv := newOpenAITestServer(t, float64(768))
	svc := NewOpenAIService("key", srv.URL+"/v1", "chat-model", "embed-model", 768)

	_, err := svc.Embed(context.Background(), "France")
	require.NoError(t, err)
}
