// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by service
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
}

// serviceClient provides HTTP access to a running mnemos service.
type serviceClient struct {
	baseURL string
	http    *http.Client
}

// newServiceClient creates a client targeting the given host:port address.
func newServiceClient(addr string) *serviceClient {
	return &serviceClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *serviceClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return c.classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decode(resp, dest)
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response into dest.
func (c *serviceClient) postJSON(path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return mnemoserr.Wrapf(err, mnemoserr.CodeCLIInputInvalid, "encoding request")
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return c.classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decode(resp, dest)
}

func (c *serviceClient) decode(resp *http.Response, dest any) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return mnemoserr.Errorf(mnemoserr.CodeCLIRequestFailure,
			"service returned status %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return mnemoserr.Wrapf(err, mnemoserr.CodeCLIRequestFailure, "invalid response")
	}
	return nil
}

func (c *serviceClient) classify(err error) error {
	if isDialError(err) {
		return mnemoserr.Wrap(err, mnemoserr.CodeCLIRequestFailure,
			"service is not running (connection refused)")
	}
	return mnemoserr.Wrapf(err, mnemoserr.CodeCLIRequestFailure, "request failed")
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
