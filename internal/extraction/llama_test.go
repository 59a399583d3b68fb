package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grn.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))
	return path
}

func TestLlamaExtractFlow(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer llx-test", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/extraction/extraction-agents/by-name/GRN Agent":
			_, _ = w.Write([]byte(`{"id":"agent-1","name":"GRN Agent"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/files":
			file, header, err := r.FormFile("upload_file")
			if assert.NoError(t, err) {
				_ = file.Close()
				assert.Equal(t, "grn.pdf", header.Filename)
			}
			_, _ = w.Write([]byte(`{"id":"file-1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/extraction/jobs":
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "agent-1", req["extraction_agent_id"])
			assert.Equal(t, "file-1", req["file_id"])
			_, _ = w.Write([]byte(`{"id":"job-1","status":"PENDING"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/extraction/jobs/job-1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_, _ = w.Write([]byte(`{"id":"job-1","status":"PENDING"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"job-1","status":"SUCCESS"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/extraction/jobs/job-1/result":
			_, _ = w.Write([]byte(`{"data":{"po_number":"PO-1","hsn":9007199254740993,"items":[{"description":"Tomato"}]},"extraction_metadata":{"pages":1}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewLlamaClient(server.URL, "llx-test", 10*time.Millisecond, time.Second)
	agent, err := client.Agent(context.Background(), "GRN Agent")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agent.ID)

	result, err := agent.Extract(context.Background(), writeTempPDF(t))
	require.NoError(t, err)
	assert.Equal(t, "PO-1", result.Data["po_number"])
	assert.Len(t, result.Data["items"], 1)
	assert.Equal(t, json.Number("9007199254740993"), result.Data["hsn"])
	assert.Equal(t, json.Number("1"), result.Metadata["pages"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestLlamaAgentNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewLlamaClient(server.URL, "k", 0, 0).Agent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestLlamaJobErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/files":
			_, _ = w.Write([]byte(`{"id":"file-1"}`))
		case "/api/v1/extraction/jobs":
			_, _ = w.Write([]byte(`{"id":"job-1","status":"PENDING"}`))
		case "/api/v1/extraction/jobs/job-1":
			_, _ = w.Write([]byte(`{"id":"job-1","status":"ERROR","error":"parse failure"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	agent := &LlamaAgent{client: NewLlamaClient(server.URL, "k", 10*time.Millisecond, time.Second), ID: "agent-1"}
	_, err := agent.Extract(context.Background(), writeTempPDF(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failure")
}

func TestLlamaHTTPErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	agent := &LlamaAgent{client: NewLlamaClient(server.URL, "k", 0, 0), ID: "agent-1"}
	_, err := agent.Extract(context.Background(), writeTempPDF(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
