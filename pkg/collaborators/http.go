// Package collaborators provides chat and memory service clients for the action executors.
package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every collaborator request.
const DefaultTimeout = 10 * time.Second

var errNotFound = errors.New("not found")

// HTTPError represents a non-2xx collaborator response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

type client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func newClient(baseURL string, logger *slog.Logger) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logger,
	}
}

// do sends body as JSON and decodes a JSON response into out. A 404 yields errNotFound.
func (c client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WarnContext(ctx, "failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
