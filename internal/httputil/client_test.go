package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStandardClientDefault(t *testing.T) {
	assert.Same(t, http.DefaultClient, NewStandardClient(nil).Client)
}

func TestStandardClientAgainstServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Write(append([]byte(r.Header.Get("Content-Type")+":"), body...))
	}))
	defer ts.Close()

	var c HTTPClient = NewStandardClient(ts.Client())

	resp, err := c.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "GET", resp.Header.Get("X-Method"))

	resp, err = c.Post(ts.URL, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "application/json:{}", string(body))
}

func TestMockHTTPClientReplaysInOrder(t *testing.T) {
	m := NewMockHTTPClient().
		AddResponse(http.StatusCreated, `{"id":"a"}`).
		AddErrorResponse(errors.New("connection reset"))

	resp, err := m.Post("http://gait.local/api/analyses", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":"a"}`, string(body))

	_, err = m.Get("http://gait.local/api/catalog")
	assert.EqualError(t, err, "connection reset")

	resp, err = m.Get("http://gait.local/api/version")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 3, m.RequestCount())
	assert.Equal(t, "application/json", m.GetRequest(0).Header.Get("Content-Type"))
	assert.Equal(t, "/api/catalog", m.GetRequest(1).URL.Path)
	assert.Nil(t, m.GetRequest(3))
}

func TestMockHTTPClientBadURL(t *testing.T) {
	m := NewMockHTTPClient()
	_, err := m.Get("://bad")
	assert.Error(t, err)
	assert.Zero(t, m.RequestCount())
}
