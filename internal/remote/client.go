package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jo-hoe/monadgram/internal/submission"
)

const (
	adminKeyHeader = "x-admin-key"
	maxErrorBody   = 512
)

// UploadRequest is the body of the upload function.
type UploadRequest struct {
	DataURL  string `json:"dataUrl"`
	FileName string `json:"fileName"`
	Twitter  string `json:"twitter"`
}

type itemsResponse struct {
	Items []submission.Submission `json:"items"`
}

type idRequest struct {
	ID string `json:"id"`
}

// Client talks to the backend functions, its REST interface and object storage URLs.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient uses one honoring config.Timeout.
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

func (c *Client) Config() Config {
	return c.config
}

// Upload posts a new submission; it ends up pending on the backend.
func (c *Client) Upload(ctx context.Context, request UploadRequest) error {
	if c.config.Endpoints.Upload == "" {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, "upload", http.MethodPost, c.config.Endpoints.Upload, request, nil)
	return err
}

// ListPending returns the pending submissions, authenticated by adminKey.
func (c *Client) ListPending(ctx context.Context, adminKey string) ([]submission.Submission, error) {
	if c.config.Endpoints.ListPending == "" {
		return nil, ErrNotConfigured
	}
	headers := map[string]string{adminKeyHeader: adminKey}
	body, err := c.do(ctx, "list-pending", http.MethodGet, c.config.Endpoints.ListPending, nil, headers)
	if err != nil {
		return nil, err
	}
	return decodeItems("list-pending", body)
}

// Approve moves id from pending to approved on the backend.
func (c *Client) Approve(ctx context.Context, adminKey, id string) error {
	if c.config.Endpoints.Approve == "" {
		return ErrNotConfigured
	}
	headers := map[string]string{adminKeyHeader: adminKey}
	_, err := c.do(ctx, "approve", http.MethodPost, c.config.Endpoints.Approve, idRequest{ID: id}, headers)
	return err
}

// Delete irreversibly removes id, pending or approved.
func (c *Client) Delete(ctx context.Context, adminKey, id string) error {
	if c.config.Endpoints.Delete == "" {
		return ErrNotConfigured
	}
	headers := map[string]string{adminKeyHeader: adminKey}
	_, err := c.do(ctx, "delete", http.MethodPost, c.config.Endpoints.Delete, idRequest{ID: id}, headers)
	return err
}

// ListApproved calls the unauthenticated list-approved function.
func (c *Client) ListApproved(ctx context.Context) ([]submission.Submission, error) {
	if c.config.Endpoints.ListApproved == "" {
		return nil, ErrNotConfigured
	}
	body, err := c.do(ctx, "list-approved", http.MethodGet, c.config.Endpoints.ListApproved, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeItems("list-approved", body)
}

// QueryApproved reads approved rows straight from the backend REST interface.
func (c *Client) QueryApproved(ctx context.Context) ([]submission.Submission, error) {
	if !c.config.HasREST() {
		return nil, ErrNotConfigured
	}
	query := url.Values{}
	query.Set("select", "id,storage_path,twitter,created_at")
	query.Set("status", "eq.approved")
	query.Set("order", "created_at.desc")
	endpoint := c.config.trimmedBase() + "/rest/v1/submissions?" + query.Encode()

	body, err := c.do(ctx, "rest-query", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	var items []submission.Submission
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("rest-query: failed to decode response: %w", err)
	}
	if items == nil {
		items = []submission.Submission{}
	}
	return items, nil
}

// PublicURL builds the public object URL for a storage path; empty when storage is not configured.
func (c *Client) PublicURL(storagePath string) string {
	if !c.config.HasStorage() || storagePath == "" {
		return ""
	}
	return c.config.trimmedBase() + "/storage/v1/object/public/" + c.config.Bucket + "/" + storagePath
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", operation, err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		request.Header.Set("apikey", c.config.APIKey)
		request.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer func() {
		if cerr := response.Body.Close(); cerr != nil {
			slog.Warn("failed to close response body", "operation", operation, "error", cerr)
		}
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Operation: operation, StatusCode: response.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeItems accepts both {"items": [...]} and a bare JSON array.
func decodeItems(operation string, body []byte) ([]submission.Submission, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []submission.Submission
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%s: failed to decode response: %w", operation, err)
		}
		if items == nil {
			items = []submission.Submission{}
		}
		return items, nil
	}

	var decoded itemsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	if decoded.Items == nil {
		decoded.Items = []submission.Submission{}
	}
	return decoded.Items, nil
}
