// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package peer is the HTTP client one service uses to call the other.

Every call is a single attempt bounded by the configured timeout; retrying is
the dispatcher's job. Requests carry X-Sync-Origin so the receiving service
applies them without recording new sync events, and X-Request-ID so both
sides log the same correlation id.
*/
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/ctxutil"
	"github.com/taibuivan/librasync/internal/platform/metrics"
)

// maxBodyBytes caps how much of a peer response is read.
const maxBodyBytes = 1 << 20

// Envelope mirrors the response body both services produce.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// Response is the raw outcome of one peer call.
type Response struct {
	Status   int
	Envelope Envelope
	Body     []byte
}

// OK reports a 2xx status.
func (response *Response) OK() bool {
	return response.Status >= 200 && response.Status < 300
}

// Client calls one peer service.
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
	metrics *metrics.Metrics
}

/*
NewClient builds a client for the peer described by cfg.

Parameters:
  - cfg: config.PeerConfig (base URL including the peer's API prefix, timeout)
  - origin: string (this service's role, sent as X-Sync-Origin)
  - m: *metrics.Metrics
*/
func NewClient(cfg config.PeerConfig, origin string, m *metrics.Metrics) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16

	return &Client{
		baseURL: cfg.BaseURL,
		origin:  origin,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		metrics: m,
	}
}

/*
Do sends one JSON request and decodes the envelope of the answer.

A non-2xx status is not an error here; see [Response.Err]. The error return
only reports failures to get an answer at all, as a [KindUnavailable] [*Error].
*/
func (client *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("peer_encode_failed: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("peer_request_failed: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set(constants.HeaderSyncOrigin, client.origin)
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		request.Header.Set(constants.HeaderXRequestID, requestID)
	}

	start := time.Now()
	httpResponse, err := client.http.Do(request)
	if err != nil {
		client.metrics.PeerRequest(method, 0, time.Since(start))
		return nil, &Error{Kind: KindUnavailable, Method: method, Path: path, Cause: err}
	}
	defer httpResponse.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxBodyBytes))
	client.metrics.PeerRequest(method, httpResponse.StatusCode, time.Since(start))
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Method: method, Path: path, Status: httpResponse.StatusCode, Cause: err}
	}

	response := &Response{Status: httpResponse.StatusCode, Body: raw}

	// Bodies that are not our envelope (proxies, HTML error pages) keep only Body.
	_ = json.Unmarshal(raw, &response.Envelope)

	ctxutil.GetLogger(ctx).DebugContext(ctx, "peer_call_finished",
		"method", method,
		"path", path,
		"status", response.Status,
	)
	return response, nil
}

// Err converts a non-2xx response into a classified [*Error].
func (response *Response) Err(method, path string) error {
	if response.OK() {
		return nil
	}
	return &Error{
		Kind:   classify(response.Status),
		Method: method,
		Path:   path,
		Status: response.Status,
		Code:   response.Envelope.Code,
		Body:   string(response.Body),
	}
}

// call runs Do and folds non-2xx statuses into the error.
func (client *Client) call(ctx context.Context, method, path string, body any) (*Response, error) {
	response, err := client.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return response, response.Err(method, path)
}

// DecodeData unmarshals the envelope's data field into target.
func (response *Response) DecodeData(target any) error {
	if len(response.Envelope.Data) == 0 {
		return errors.New("peer response has no data")
	}
	return json.Unmarshal(response.Envelope.Data, target)
}
