package directoryclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectoryClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/clients/1", "/api/users/2", "/api/quotes/3":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewDirectoryClient(srv.URL)
	ctx := context.Background()

	ok, err := client.ClientExists(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.UserExists(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.QuoteExists(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.ClientExists(ctx, 42)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDirectoryClientUnexpectedStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewDirectoryClient(srv.URL)
	_, err := client.UserExists(context.Background(), 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status: 400")
}
