// Package fakeapitest starts the in-memory API for tests.
package fakeapitest

import (
	"net/http/httptest"
	"testing"

	"github.com/alexhail/quickcontroller/internal/fakeapi"
)

// NewServer starts a fakeapi.Server on a loopback listener that is closed
// when the test ends.
func NewServer(t testing.TB, options ...fakeapi.Option) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	s := fakeapi.New(options...)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}
