// Package sdk provides HTTP clients for the DPSShare roles. The clients also
// implement the outbound interfaces the services depend on, so a deployment
// wires services together through them.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	CTJSON string = "application/json"
	CTCBOR string = "application/cbor"

	healthEndpoint = "/health"
	statusEndpoint = "/status"
	recvEndpoint   = "/recv"
)

var ErrUnexpectedStatus = errors.New("unexpected response code")

// StatusError is returned when a role answers with an unexpected status code.
// It matches ErrUnexpectedStatus.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Code)
	}

	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatus, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Retryable reports whether a failed request may succeed when repeated:
// transport failures and server errors are, client errors are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}

	return true
}

type Config struct {
	TLSVerification bool
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

type client struct {
	http *http.Client
}

func newClient(cfg Config) client {
	return client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (c client) processRequest(ctx context.Context, method, reqURL, contentType string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e struct {
			Error string `json:"error"`
		}
		se := &StatusError{Code: resp.StatusCode}
		if json.Unmarshal(body, &e) == nil {
			se.Message = e.Error
		}

		return []byte{}, se
	}

	return body, nil
}

func (c client) getJSON(ctx context.Context, reqURL string, out any) error {
	body, err := c.processRequest(ctx, http.MethodGet, reqURL, "", nil, http.StatusOK)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

func (c client) postJSON(ctx context.Context, reqURL string, in any, expectedRespCode int, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	body, err := c.processRequest(ctx, http.MethodPost, reqURL, CTJSON, data, expectedRespCode)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	return json.Unmarshal(body, out)
}

func (c client) postCBOR(ctx context.Context, reqURL string, in any, expectedRespCode int) error {
	data, err := cbor.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.processRequest(ctx, http.MethodPost, reqURL, CTCBOR, data, expectedRespCode)

	return err
}

// Health probes the liveness endpoint of any role.
func Health(ctx context.Context, url string, cfg Config) error {
	_, err := newClient(cfg).processRequest(ctx, http.MethodGet, url+healthEndpoint, "", nil, http.StatusOK)

	return err
}
