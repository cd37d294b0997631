package main

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/chargebook/internal/api/ampeco/ampecotest"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setEnv(t *testing.T, url string) {
	t.Setenv("AMPECO_API_URL", url)
	t.Setenv("AMPECO_API_TOKEN", "token")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("PROVIDER_TIMEOUT", "2s")
}

func TestPing(t *testing.T) {
	srv := ampecotest.NewServer()
	t.Cleanup(srv.Close)
	setEnv(t, srv.URL)

	out, err := runCmd(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "ok "+srv.URL)
	assert.Equal(t, 1, srv.Calls(http.MethodGet, "/resources/locations/v1.1"))
}

func TestPing_ProviderRejects(t *testing.T) {
	srv := ampecotest.NewServer()
	t.Cleanup(srv.Close)
	srv.Fail(http.MethodGet, "/resources/locations/v1.1", http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
	setEnv(t, srv.URL)

	_, err := runCmd(t, "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ampeco responded 401")
}

func TestPing_MissingConfig(t *testing.T) {
	t.Setenv("AMPECO_API_URL", "")
	t.Setenv("AMPECO_API_TOKEN", "")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := runCmd(t, "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMPECO_API_URL")
}
