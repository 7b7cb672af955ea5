// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func TestServiceClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := newServiceClient(srv.URL[len("http://"):])
	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, client.getJSON("/api/v1/status", &body))
	assert.Equal(t, "ok", body.Status)
}

func TestServiceClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": req["query"]})
	}))
	defer srv.Close()

	client := newServiceClient(srv.URL[len("http://"):])
	var body struct {
		Echo string `json:"echo"`
	}
	require.NoError(t, client.postJSON("/api/v1/search", map[string]string{"query": "hi"}, &body))
	assert.Equal(t, "hi", body.Echo)
}

func TestServiceClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Bad Request"}`))
	}))
	defer srv.Close()

	client := newServiceClient(srv.URL[len("http://"):])
	err := client.getJSON("/api/v1/status", nil)
	require.Error(t, err)
	assert.True(t, mnemoserr.HasCode(err, mnemoserr.CodeCLIRequestFailure))
	assert.Contains(t, err.Error(), "400")
}

func TestServiceClient_ConnectionRefused(t *testing.T) {
	client := newServiceClient("127.0.0.1:1")
	err := client.getJSON("/api/v1/status", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}
