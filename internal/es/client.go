// Package es is the Elasticsearch capability used by escmd. It wraps the
// typed go-elasticsearch client and translates its responses into small
// explicit types, so callers never look up response keys themselves.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Config holds the connection settings of one cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// Transport replaces the HTTP transport, mainly for tests.
	Transport http.RoundTripper

	Log *zerolog.Logger
}

// Client talks to one Elasticsearch cluster.
type Client struct {
	es  *elasticsearch.TypedClient
	log zerolog.Logger
}

// New creates a client for cfg. No request is sent.
func New(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("no elasticsearch address configured")
	}

	transport := cfg.Transport
	if transport == nil && cfg.Insecure {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // --insecure
		transport = t
	}

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	log := zerolog.Nop()
	if cfg.Log != nil {
		log = *cfg.Log
	}

	return &Client{es: client, log: log.With().Str("component", "es").Logger()}, nil
}

// APIError is a non 2xx response of a raw request.
type APIError struct {
	Method string
	Path   string
	Status int
	Type   string
	Reason string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	if e.Type != "" {
		msg += ": " + e.Type
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsNotFound reports whether err is a 404 response of either the typed or
// the raw API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}

	var esErr *types.ElasticsearchError
	if errors.As(err, &esErr) {
		return esErr.Status == http.StatusNotFound
	}

	return false
}

// perform sends a raw request to path, relative to the cluster address, and
// returns the response body.
func (c *Client) perform(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("request")

	res, err := c.es.Perform(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, newAPIError(method, path, res.StatusCode, data)
	}

	return data, nil
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}

	cause := gjson.GetBytes(body, "error")
	switch {
	case cause.IsObject():
		apiErr.Type = cause.Get("type").String()
		apiErr.Reason = cause.Get("reason").String()
	case cause.Exists():
		apiErr.Reason = cause.String()
	default:
		apiErr.Reason = strings.TrimSpace(string(body))
	}

	return apiErr
}

// acknowledged checks the "acknowledged" flag of a write response.
func acknowledged(body []byte, what string) error {
	if !gjson.GetBytes(body, "acknowledged").Bool() {
		return fmt.Errorf("%s has not been acknowledged", what)
	}
	return nil
}
