package livetiming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:funlen // table driven
func TestNegotiateHappyPath(t *testing.T) {
	var (
		preflightSeen bool
		tokenCookie   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			preflightSeen = true
			assert.Equal(t, originHeader, r.Header.Get("Origin"))
			assert.Equal(t, refererHeader, r.Header.Get("Referer"))
			w.Header().Add("Set-Cookie",
				"AWSALBCORS=token123; Expires=Sun, 01 Jun 2025 00:00:00 GMT; Path=/; SameSite=None")
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			assert.Equal(t, "negotiateVersion=1", r.URL.RawQuery)
			tokenCookie = r.Header.Get("Cookie")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"connectionToken": "abc=123",
				"connectionId": "conn-1",
				"negotiateVersion": 1,
				"availableTransports": [
					{"transport": "WebSockets", "transferFormats": ["Text", "Binary"]}
				]
			}`))
		}
	}))
	defer srv.Close()

	res, err := NewNegotiator(srv.URL).Negotiate(context.Background())
	require.NoError(t, err)
	assert.True(t, preflightSeen)
	assert.Equal(t, "AWSALBCORS=token123", tokenCookie)
	assert.Equal(t, "abc=123", res.ConnectionToken)
	assert.Equal(t, "token123", res.Cookie)
}

func TestNegotiateToleratesMissingCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assert.Empty(t, r.Header.Get("Cookie"))
			_, _ = w.Write([]byte(`{"connectionToken": "tok"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res, err := NewNegotiator(srv.URL).Negotiate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", res.ConnectionToken)
	assert.Empty(t, res.Cookie)
}

func TestNegotiateFallsBackToConnectionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"connectionId": "conn-42"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res, err := NewNegotiator(srv.URL).Negotiate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conn-42", res.ConnectionToken)
}

func TestNegotiateFailsWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := NewNegotiator(srv.URL).Negotiate(context.Background())
	require.Error(t, err)
	var negErr *NegotiationError
	assert.ErrorAs(t, err, &negErr)
}

func TestNegotiateReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewNegotiator(srv.URL).Negotiate(context.Background())
	require.Error(t, err)
	var negErr *NegotiationError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, "preflight", negErr.Op)
}
