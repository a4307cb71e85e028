package imagegen_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/imagegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, ":generateContent")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func newClient(t *testing.T, baseURL string) *imagegen.GeminiClient {
	t.Helper()
	client, err := imagegen.NewGeminiClient(imagegen.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
	require.NoError(t, err)
	return client
}

func TestGenerateImage_SnakeCasePayload(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := geminiServer(t, fmt.Sprintf(
		`{"candidates":[{"content":{"parts":[{"text":"caption"},{"inline_data":{"mime_type":"image/png","data":"%s"}}]}}]}`, png),
		http.StatusOK)
	defer srv.Close()

	payload, err := newClient(t, srv.URL).GenerateImage(context.Background(), "draw a cell")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), payload)
}

func TestGenerateImage_CamelCasePayload(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := geminiServer(t, fmt.Sprintf(
		`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"%s"}}]}}]}`, png),
		http.StatusOK)
	defer srv.Close()

	payload, err := newClient(t, srv.URL).GenerateImage(context.Background(), "draw a cell")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), payload)
}

func TestGenerateImage_NoImageData(t *testing.T) {
	srv := geminiServer(t,
		`{"candidates":[{"content":{"parts":[{"text":"only text came back"}]}}]}`,
		http.StatusOK)
	defer srv.Close()

	_, err := newClient(t, srv.URL).GenerateImage(context.Background(), "draw a cell")
	assert.ErrorIs(t, err, types.ErrNoImageData)
}

func TestGenerateImage_NonSuccessStatus(t *testing.T) {
	srv := geminiServer(t, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	defer srv.Close()

	_, err := newClient(t, srv.URL).GenerateImage(context.Background(), "draw a cell")

	var uerr *types.UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "image", uerr.Stage)
	assert.Contains(t, uerr.Error(), "429")
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := imagegen.NewGeminiClient(imagegen.GeminiConfig{})

	var verr types.ValidationError
	require.ErrorAs(t, err, &verr)
}
