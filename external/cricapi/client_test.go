package cricapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpwatch/stumpwatch/internal/platform/httpfetch"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

func newTestClient(t *testing.T, baseURL string, keys ...string) *Client {
	t.Helper()
	if len(keys) == 0 {
		keys = []string{"key-a"}
	}
	client, err := NewClient(Config{
		BaseURL: baseURL,
		APIKeys: keys,
		Fetcher: httpfetch.New(httpfetch.Config{MaxRetries: 1, BaseBackoff: time.Millisecond}),
		Logger:  logging.NewNop(),
	})
	require.NoError(t, err)
	return client
}

func TestClient_CurrentMatchesRawIgnoresUsageCounters(t *testing.T) {
	t.Parallel()

	data := `[{"id":"m-1","name":"India vs Australia, ICC World Cup","status":"Live","matchStarted":true}]`
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The usage block moves on every request even when the match list
		// does not.
		used := 40 + hits.Add(1)
		fmt.Fprintf(w, `{"status":"success","data":%s,"info":{"hitsToday":%d,"hitsUsed":%d,"hitsLimit":100}}`, data, used, used)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	rawFirst, matchesFirst, err := client.CurrentMatches(context.Background())
	require.NoError(t, err)
	rawSecond, _, err := client.CurrentMatches(context.Background())
	require.NoError(t, err)

	require.Len(t, matchesFirst, 1)
	assert.Equal(t, "m-1", matchesFirst[0].ID)
	assert.Equal(t, rawFirst, rawSecond, "unchanged match data must yield identical raw bytes")
	assert.JSONEq(t, data, string(rawFirst))
}

func TestClient_RotatesKeyOnRejection(t *testing.T) {
	t.Parallel()

	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("apikey")
		keys = append(keys, key)
		if key != "key-b" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"status":"success","data":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "key-a", "key-b")

	_, matches, err := client.CurrentMatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, []string{"key-a", "key-b"}, keys)
}

func TestClient_NonSuccessEnvelopeStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failure","data":[]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, _, err := client.CurrentMatches(context.Background())
	require.ErrorIs(t, err, ErrProviderStatus)
}
