package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_server(t *testing.T) {
	env := setup(t)

	t.Run("home", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Welcome to "+env.conf.AppName+" API!", rec.Body.String())
	})

	t.Run("unknown route", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/lol")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/login")
		env.app.ServeHTTP(rec, req)

		req, rec = newRequest(http.MethodGet, "/metrics")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "seatplan_test_")
	})
}
