// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnemos-dev/mnemos/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresListenAddr(t *testing.T) {
	_, err := server.New(server.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen address")
}

func TestNew_CORSOptIn(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr:  "127.0.0.1:0",
		CORSOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_NoCORSByDefault(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"),
		"a localhost daemon serves no CORS headers unless origins are configured")
}

func TestNewServices_RequiresDependencies(t *testing.T) {
	_, err := server.NewServices(nil, &stubEmbeddings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index service")

	_, err = server.NewServices(&stubIndex{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service")
}
