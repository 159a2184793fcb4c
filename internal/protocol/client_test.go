package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/cache"
	"github.com/lepinkainen/shelf/internal/errors"
	"github.com/lepinkainen/shelf/internal/testutil"
)

func TestClientFetch(t *testing.T) {
	var gotAuth, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			gotAuth = r.Header.Get("Authorization")
			gotAgent = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte(`{"title":"Dune"}`))
		case "/throttled":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient("test", WithHeader("Authorization", "secret"), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	body, err := client.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Dune"}`, string(body))
	assert.Equal(t, "secret", gotAuth)
	assert.Contains(t, gotAgent, "shelf")

	_, err = client.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Fetch(ctx, srv.URL+"/throttled")
	require.True(t, errors.IsRateLimitError(err))
	assert.Contains(t, err.Error(), "retry after 30s")

	_, err = client.Fetch(ctx, srv.URL+"/broken")
	assert.ErrorContains(t, err, "status 500")
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient("slow", WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientRateInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient("paced", WithRateInterval(50*time.Millisecond))
	start := time.Now()
	for range 3 {
		_, err := client.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClientCache(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	testutil.SetupTestCache(t, env)
	require.NoError(t, cache.ResetGlobalCache())
	t.Cleanup(func() { _ = cache.ResetGlobalCache() })

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<feed/>"))
	}))
	defer srv.Close()

	client := NewClient("feedbooks", WithCache(cache.TableName("feedbooks")))
	ctx := context.Background()

	for range 2 {
		body, err := client.Fetch(ctx, srv.URL+"/feed")
		require.NoError(t, err)
		assert.Equal(t, "<feed/>", string(body))
	}
	assert.Equal(t, int32(1), hits.Load())

	for range 2 {
		_, err := client.Fetch(ctx, srv.URL+"/missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, env.Path("cache", "test-cache.db"), viper.GetString("cache.dbfile"))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 120*time.Second, parseRetryAfter("120"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	assert.InDelta(t, time.Minute.Seconds(), parseRetryAfter(future).Seconds(), 2)
}
