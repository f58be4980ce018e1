package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// RemoteStore is the submission surface this engine depends on. A
// destination is an opaque folder/project handle supplied by the setup
// layer. Delivery is at-least-once: the idempotency key sent with every
// request is stable per survey, and the remote side is expected to
// deduplicate on it.
type RemoteStore interface {
	StoreSurveyJSON(ctx context.Context, destination, name string, body []byte) error
	StorePlacementsJSON(ctx context.Context, destination, name string, body []byte) error
	StorePhoto(ctx context.Context, destination, name string, r io.Reader, size int64) (ref string, err error)
	Online(ctx context.Context) bool
}

// HTTPRemoteStore talks to the remote file store over HTTP. The token has an
// explicit lifecycle via the oauth2 token source instead of ambient state:
// the setup layer issues it, the source refreshes it, Close clears it.
type HTTPRemoteStore struct {
	baseURL        string
	client         *http.Client
	idempotencyKey string
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey scopes every request made under ctx to one survey's
// idempotency key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// NewHTTPRemoteStore builds a remote store client. token may be empty for
// unauthenticated test targets.
func NewHTTPRemoteStore(baseURL, token, idempotencyKey string) *HTTPRemoteStore {
	client := &http.Client{Timeout: 2 * time.Minute}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), src)
		client.Timeout = 2 * time.Minute
	}
	return &HTTPRemoteStore{
		baseURL:        baseURL,
		client:         client,
		idempotencyKey: idempotencyKey,
	}
}

// StoreSurveyJSON uploads the export document.
func (s *HTTPRemoteStore) StoreSurveyJSON(ctx context.Context, destination, name string, body []byte) error {
	_, err := s.put(ctx, destination, name, "application/json", bytes.NewReader(body), int64(len(body)))
	return err
}

// StorePlacementsJSON uploads the updated-placements document.
func (s *HTTPRemoteStore) StorePlacementsJSON(ctx context.Context, destination, name string, body []byte) error {
	_, err := s.put(ctx, destination, name, "application/json", bytes.NewReader(body), int64(len(body)))
	return err
}

// StorePhoto uploads one photo binary and returns its remote reference.
func (s *HTTPRemoteStore) StorePhoto(ctx context.Context, destination, name string, r io.Reader, size int64) (string, error) {
	return s.put(ctx, destination, name, "application/octet-stream", r, size)
}

// Online probes the remote store's health endpoint.
func (s *HTTPRemoteStore) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func (s *HTTPRemoteStore) put(ctx context.Context, destination, name, contentType string, r io.Reader, size int64) (string, error) {
	u := fmt.Sprintf("%s/files/%s/%s", s.baseURL, url.PathEscape(destination), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, r)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	key := idempotencyKeyFrom(ctx)
	if key == "" {
		key = s.idempotencyKey
	}
	if key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("remote store returned %d for %s: %s", resp.StatusCode, name, string(msg))
	}

	ref := resp.Header.Get("Location")
	if ref == "" {
		ref = u
	}
	return ref, nil
}
