package sdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrMissingHost is returned by New when no host is configured.
var ErrMissingHost = errors.New("sdapi: missing host")

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sdapi: unexpected status code %s (unknown error)", e.Status)
	}
	return fmt.Sprintf("sdapi: unexpected status code %s: %s", e.Status, e.Body)
}

// GET decodes the JSON response of a GET request into a new T.
func GET[T any](ctx context.Context, client *http.Client, url string) (*T, error) {
	v := new(T)
	if err := Do(ctx, client, http.MethodGet, url, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// POST encodes body as JSON and decodes the response into v. A nil v
// discards the response body.
func POST[T any](ctx context.Context, client *http.Client, url string, body any, v *T) error {
	if body == nil {
		return Do(ctx, client, http.MethodPost, url, nil, v)
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return fmt.Errorf("sdapi: encode request: %w", err)
	}
	return Do(ctx, client, http.MethodPost, url, buf, v)
}

// Do sends one JSON request and decodes a 200 response into v.
func Do[T any](ctx context.Context, client *http.Client, method, url string, body io.Reader, v *T) error {
	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer closeResponseBody(response.Body)

	if response.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(response.Body)
		return &StatusError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Body:       string(bytes.TrimSpace(data)),
		}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(v); err != nil {
		return fmt.Errorf("sdapi: decode %s response: %w", url, err)
	}
	return nil
}

func closeResponseBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
