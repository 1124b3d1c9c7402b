package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_Healthz(t *testing.T) {
	r := newRouter(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRouter_ChatReceivesEveryMethod(t *testing.T) {
	var methods []string
	r := newRouter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, m := range []string{http.MethodPost, http.MethodGet, http.MethodPut} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(m, "/api/chat", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}
	require.Equal(t, []string{http.MethodPost, http.MethodGet, http.MethodPut}, methods)
}
