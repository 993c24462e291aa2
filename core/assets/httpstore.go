package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "SheetPipe/1.0 (https://github.com/gaurav-prasanna/sheetpipe)"
)

// HTTPStore talks to a REST asset API:
//
//	GET  {endpoint}  -> {"assets": [{"id": "...", "title": "..."}]}
//	POST {endpoint}  multipart "file" + "title" -> {"id": "..."}
type HTTPStore struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPStore creates an HTTPStore. A nil client gets a default timeout.
func NewHTTPStore(endpoint, token string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   client,
	}
}

type inventoryResponse struct {
	Assets []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"assets"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Inventory fetches every asset title and identifier.
func (s *HTTPStore) Inventory(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var inv inventoryResponse
	if err := s.do(req, &inv); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(inv.Assets))
	for _, a := range inv.Assets {
		out[a.Title] = a.ID
	}
	return out, nil
}

// Upload posts one file and returns the identifier the API assigned.
func (s *HTTPStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("title", Title(name)); err != nil {
		return "", fmt.Errorf("encoding upload: %w", err)
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("encoding upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("encoding upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encoding upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp uploadResponse
	if err := s.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("upload of %s returned no id", name)
	}
	return resp.ID, nil
}

func (s *HTTPStore) do(req *http.Request, v any) error {
	req.Header.Set("User-Agent", defaultUserAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, req.URL, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
