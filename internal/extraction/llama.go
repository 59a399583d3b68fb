package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/models"
)

// Extraction job states reported by LlamaExtract.
const (
	jobSuccess   = "SUCCESS"
	jobError     = "ERROR"
	jobCancelled = "CANCELLED"
)

// LlamaClient talks to the LlamaExtract REST API.
type LlamaClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewLlamaClient creates a LlamaExtract client
func NewLlamaClient(baseURL, apiKey string, pollInterval, pollTimeout time.Duration) *LlamaClient {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Minute
	}
	return &LlamaClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// LlamaAgent is a named extraction agent; it implements Extractor.
type LlamaAgent struct {
	client *LlamaClient
	ID     string
	Name   string
}

type llamaAgentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type llamaFileResponse struct {
	ID string `json:"id"`
}

type llamaJobRequest struct {
	AgentID string `json:"extraction_agent_id"`
	FileID  string `json:"file_id"`
}

type llamaJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type llamaResultResponse struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"extraction_metadata"`
}

// Agent looks up an extraction agent by name.
func (c *LlamaClient) Agent(ctx context.Context, name string) (*LlamaAgent, error) {
	var resp llamaAgentResponse
	path := "/api/v1/extraction/extraction-agents/by-name/" + url.PathEscape(name)
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, "get agent")
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return &LlamaAgent{client: c, ID: resp.ID, Name: name}, nil
}

// Extract uploads the file, runs an extraction job and returns its result.
func (a *LlamaAgent) Extract(ctx context.Context, localPath string) (*models.ExtractionResult, error) {
	fileID, err := a.client.upload(ctx, localPath)
	if err != nil {
		return nil, err
	}

	var job llamaJobResponse
	if _, err := a.client.doJSON(ctx, http.MethodPost, "/api/v1/extraction/jobs",
		llamaJobRequest{AgentID: a.ID, FileID: fileID}, &job, "create job"); err != nil {
		return nil, err
	}

	if err := a.client.wait(ctx, job.ID); err != nil {
		return nil, err
	}

	var result llamaResultResponse
	if _, err := a.client.doJSON(ctx, http.MethodGet, "/api/v1/extraction/jobs/"+url.PathEscape(job.ID)+"/result",
		nil, &result, "get result"); err != nil {
		return nil, err
	}
	return &models.ExtractionResult{Data: result.Data, Metadata: result.Metadata}, nil
}

// wait polls the job until it leaves the pending state.
func (c *LlamaClient) wait(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var job llamaJobResponse
		if _, err := c.doJSON(ctx, http.MethodGet, "/api/v1/extraction/jobs/"+url.PathEscape(jobID), nil, &job, "get job"); err != nil {
			return err
		}

		switch job.Status {
		case jobSuccess:
			return nil
		case jobError, jobCancelled:
			if job.Error != "" {
				return fmt.Errorf("extraction job %s %s: %s", jobID, strings.ToLower(job.Status), job.Error)
			}
			return fmt.Errorf("extraction job %s %s", jobID, strings.ToLower(job.Status))
		}
		logrus.Debugf("Extraction job %s is %s", jobID, job.Status)

		select {
		case <-ctx.Done():
			return fmt.Errorf("extraction job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *LlamaClient) upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("upload_file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("create upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/files", &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llama upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", formatHTTPError("upload", resp)
	}
	var out llamaFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return out.ID, nil
}

// doJSON sends an optional JSON payload and decodes the reply into out.
// Numbers decode as json.Number so long integer codes stay exact. The HTTP
// status is returned whenever a response was received.
func (c *LlamaClient) doJSON(ctx context.Context, method, path string, payload, out any, operation string) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("llama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, formatHTTPError(operation, resp)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
	}
	return resp.StatusCode, nil
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("llama %s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("llama %s status: %s: %s", operation, resp.Status, msg)
}
