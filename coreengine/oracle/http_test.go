package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPOracle_Invoke(t *testing.T) {
	var gotAuth string
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPrompt, _ = body["prompt"].(string)
		json.NewEncoder(w).Encode(map[string]any{"content": `{"tool": "export"}`})
	}))
	defer server.Close()

	o := NewHTTPOracle(server.URL, "secret-key")
	out, err := o.Invoke(context.Background(), "build a contract")
	require.NoError(t, err)
	assert.Equal(t, `{"tool": "export"}`, out)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "build a contract", gotPrompt)
}

func TestHTTPOracle_NoAPIKeyOmitsHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"content": "ok"})
	}))
	defer server.Close()

	o := NewHTTPOracle(server.URL, "")
	out, err := o.Invoke(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestHTTPOracle_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	o := NewHTTPOracle(server.URL, "")
	_, err := o.Invoke(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPOracle_MissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"other": "field"})
	}))
	defer server.Close()

	o := NewHTTPOracle(server.URL, "")
	_, err := o.Invoke(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing content field")
}

func TestHTTPOracle_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewHTTPOracle(server.URL, "")
	_, err := o.Invoke(ctx, "anything")
	assert.Error(t, err)
}

func TestNullOracle_AlwaysErrors(t *testing.T) {
	_, err := NullOracle{}.Invoke(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no planning oracle configured")
}
