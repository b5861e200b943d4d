package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClientWithHTTPClient(&http.Client{Timeout: 2 * time.Second}, srv.URL+"/api/", nil)
	require.NoError(t, err)
	return c, srv
}

func TestNewClientWithHTTPClient_RejectsRelative(t *testing.T) {
	_, err := NewClientWithHTTPClient(http.DefaultClient, "catalog/api", nil)
	assert.Error(t, err)
}

func TestGet_ForwardsPathAndQuery(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"category_uuid":"c1"}]`))
	})

	res, err := c.Get(context.Background(), "/product", url.Values{
		"page":          {"2"},
		"quantity":      {""},
		"category_uuid": {"c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/product", gotPath)
	assert.Equal(t, "category_uuid=c1&page=2", gotQuery)
	assert.JSONEq(t, `[{"category_uuid":"c1"}]`, string(res))
}

func TestPost_SendsJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})

	res, err := c.Post(context.Background(), "category", map[string]string{"category_name": "tea"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category_name":"tea"}`, string(res))
}

func TestDo_EmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	res, err := c.Delete(context.Background(), "/category", url.Values{"category_uuid": {"c1"}})
	require.NoError(t, err)
	assert.Equal(t, "null", string(res))
}

func TestDo_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail any
	}{
		{"json detail", http.StatusNotFound, `{"detail":"no such category"}`, map[string]any{"detail": "no such category"}},
		{"text detail", http.StatusInternalServerError, "boom\n", "boom"},
		{"validation", http.StatusUnprocessableEntity, `[1]`, []any{float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Patch(context.Background(), "/category", map[string]string{})
			var up *apperr.UpstreamError
			require.ErrorAs(t, err, &up)
			assert.Equal(t, tt.status, up.Status)
			assert.Equal(t, tt.detail, up.Detail)
			assert.Equal(t, tt.status, apperr.HTTPStatus(err))
		})
	}
}

func TestDo_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := c.Get(context.Background(), "/category", nil)
	assert.ErrorIs(t, err, apperr.ErrBadGateway)
}

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClientWithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/category", nil)
	assert.ErrorIs(t, err, apperr.ErrGatewayTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, apperr.HTTPStatus(err))
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClientWithHTTPClient(&http.Client{Timeout: time.Second}, addr, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/category", nil)
	assert.ErrorIs(t, err, apperr.ErrBadGateway)
	assert.Equal(t, http.StatusBadGateway, apperr.HTTPStatus(err))
}

func TestNewClient_CachesGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{"tea", "coffee"})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, time.Second, nil)
	require.NoError(t, err)

	for range 3 {
		res, err := c.Get(context.Background(), "/category", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `["tea","coffee"]`, string(res))
	}
	assert.Equal(t, int32(1), hits.Load())
}
