package apikey_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gsarma/mailgate/internal/apikey"
)

func TestSet_Lookup(t *testing.T) {
	t.Parallel()

	s := apikey.NewSet(map[string]string{"agent": "k1", "ops": "k2"})
	require.True(t, s.Enabled())

	label, ok := s.Lookup("k2")
	require.True(t, ok)
	require.Equal(t, "ops", label)

	_, ok = s.Lookup("nope")
	require.False(t, ok)
	_, ok = s.Lookup("")
	require.False(t, ok)

	require.False(t, apikey.NewSet(nil).Enabled())
}

func serve(s *apikey.Set, header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(s.Middleware())
	r.GET("/x", func(c *gin.Context) {
		seen = apikey.FromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	s := apikey.NewSet(map[string]string{"agent": "secret"})

	w, caller := serve(s, "Bearer secret")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "agent", caller)

	w, _ = serve(s, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing API key")

	w, _ = serve(s, "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid API key")

	w, caller = serve(apikey.NewSet(nil), "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, caller)
}
