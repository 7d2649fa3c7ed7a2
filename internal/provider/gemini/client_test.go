package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/marnevik/prompt-service-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	lastReq *http.Request
	resp    *http.Response
	err     error
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testConfig() *config.GeminiConfig {
	return &config.GeminiConfig{
		BaseURL:    "https://generativelanguage.googleapis.com",
		APIVersion: "v1beta",
		Model:      "gemini-2.5-flash",
		Timeout:    5 * time.Second,
	}
}

func TestGenerateReturnsFirstCandidateText(t *testing.T) {
	transport := &fakeTransport{
		resp: jsonResponse(http.StatusOK, `{
			"candidates": [
				{"content": {"parts": [{"text": "generated description"}]}}
			]
		}`),
	}

	client := NewClient(testConfig(), "test-key").WithHTTPClient(transport)

	text, err := client.Generate(context.Background(), "describe a task")
	require.NoError(t, err)
	assert.Equal(t, "generated description", text)

	require.NotNil(t, transport.lastReq)
	assert.Equal(t, http.MethodPost, transport.lastReq.Method)
	assert.Contains(t, transport.lastReq.URL.String(), "models/gemini-2.5-flash:generateContent")
	assert.Contains(t, transport.lastReq.URL.RawQuery, "key=test-key")

	var sent generateRequest
	body, err := io.ReadAll(transport.lastReq.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &sent))
	require.Len(t, sent.Contents, 1)
	assert.Equal(t, "describe a task", sent.Contents[0].Parts[0].Text)
}

func TestGenerateMapsAPIError(t *testing.T) {
	transport := &fakeTransport{
		resp: jsonResponse(http.StatusBadRequest, `{
			"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}
		}`),
	}

	client := NewClient(testConfig(), "bad-key").WithHTTPClient(transport)

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_ARGUMENT")
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateEmptyCandidatesIsError(t *testing.T) {
	transport := &fakeTransport{
		resp: jsonResponse(http.StatusOK, `{"candidates": []}`),
	}

	client := NewClient(testConfig(), "test-key").WithHTTPClient(transport)

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := NewClient(testConfig(), "")

	_, err := client.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
