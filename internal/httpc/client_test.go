package httpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL+"/frame.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(body))

	_, err = Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}

func TestFetch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, "http://127.0.0.1:1/")
	assert.Error(t, err)
}

func TestNewClient_Timeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, Client.Timeout)
	assert.NotNil(t, NewClient(0).Transport)
}
