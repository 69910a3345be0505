package cardclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DiscoveryPath, r.URL.Path)
		w.Write([]byte(`{"name":"math_agent","description":"does math","skills":[]}`))
	}))
	defer server.Close()

	c := NewWithClient(server.Client())
	card, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "math_agent", card.Name)
	assert.Equal(t, server.URL, card.URL)
}

func TestFetch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewWithClient(server.Client())
	_, err := c.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
}

func TestFetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewWithClient(server.Client())
	_, err := c.Fetch(context.Background(), server.URL)
	require.Error(t, err)
}
