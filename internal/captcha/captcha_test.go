package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVerifier_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful verification", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/site-key/siteverify", r.URL.Path)

			var req verifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "secret-key", req.Secret)
			assert.Equal(t, "challenge-token", req.Response)

			_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
		}))
		defer srv.Close()

		v := NewHTTPVerifier("site-key", "secret-key", srv.URL)
		ok, err := v.Verify(ctx, "challenge-token")
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Rejected token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]bool{"success": false})
		}))
		defer srv.Close()

		v := NewHTTPVerifier("site-key", "secret-key", srv.URL)
		ok, err := v.Verify(ctx, "bad-token")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Upstream error is not a pass", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		v := NewHTTPVerifier("site-key", "secret-key", srv.URL)
		ok, err := v.Verify(ctx, "token")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Missing configuration", func(t *testing.T) {
		v := NewHTTPVerifier("", "", "http://unused")
		ok, err := v.Verify(ctx, "token")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
