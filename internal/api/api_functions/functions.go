package api_functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	"github.com/pkg/errors"
)

// StatusError is returned when a peer answers with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// PostJSON marshals body and POSTs it to url, gzip compressed when compress is set.
// It returns the response body of a 200 answer.
func PostJSON(ctx context.Context, client *http.Client, url string, body interface{}, compress bool) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request body")
	}

	var reader io.Reader = bytes.NewReader(payload)
	if compress {
		if compressed, err := utils.Compress(payload); err != nil {
			return nil, errors.Wrap(err, "failed to compress request body")
		} else {
			reader = &compressed
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	return do(client, req)
}

// GetJSON issues a GET to url and decodes the 200 answer into out.
func GetJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	body, err := do(client, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", url)
	}
	return nil
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send %s request to %s", req.Method, req.URL)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Error("Error closing response body", "error", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response from %s", req.URL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return body, nil
}

// ReadBody returns the request body, decompressing it if it was sent gzipped.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Header.Get("Content-Encoding") == "gzip" {
		return utils.Decompress(r.Body)
	}
	if body, err := io.ReadAll(r.Body); err != nil {
		return nil, errors.Wrap(err, "unable to read body")
	} else {
		return body, nil
	}
}

// DecodeBody reads the request body into v. On failure it has already answered 400.
func DecodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := ReadBody(r)
	if err != nil {
		slog.Error("Error reading request body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		slog.Error("Error decoding request body", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

func WriteText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}
