package search

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

	"github.com/mrlokans/readnext/internal/resilience"
)

const volumesJSON = `{
  "totalItems": 2,
  "items": [
    {
      "id": "abc",
      "volumeInfo": {
        "title": "Good Omens",
        "authors": ["Terry Pratchett", "Neil Gaiman"],
        "description": "The world ends on Saturday.",
        "publishedDate": "1990",
        "pageCount": 412,
        "categories": ["Fiction"],
        "averageRating": 4.5,
        "imageLinks": {"thumbnail": "http://books.google.com/thumb.jpg"}
      }
    },
    {"id": "def", "volumeInfo": {}}
  ]
}`

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, RequestsPerSec: 1000, BreakerFailures: 2, BreakerOpenDelay: time.Minute})
}

func TestSearch_MapsVolumes(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, volumesJSON)
	}))
	defer server.Close()

	books, err := newTestClient(server.URL).Search(context.Background(), "  good omens ", 0)
	require.NoError(t, err)

	assert.Equal(t, "good omens", gotQuery["q"][0])
	assert.Equal(t, "8", gotQuery["maxResults"][0])
	assert.Equal(t, "books", gotQuery["printType"][0])
	assert.Equal(t, "relevance", gotQuery["orderBy"][0])

	require.Len(t, books, 2)
	assert.Equal(t, GoogleBook{
		ID:            "abc",
		Title:         "Good Omens",
		Author:        "Terry Pratchett, Neil Gaiman",
		Description:   "The world ends on Saturday.",
		CoverImage:    "https://books.google.com/thumb.jpg",
		PublishedDate: "1990",
		PageCount:     412,
		Categories:    []string{"Fiction"},
		AverageRating: 4.5,
	}, books[0])
	assert.Equal(t, "Unknown Title", books[1].Title)
	assert.Equal(t, "Unknown Author", books[1].Author)
	assert.Empty(t, books[1].CoverImage)
}

func TestSearch_MaxResults(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, `{"totalItems":0}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for _, n := range []int{3, 100, -1} {
		books, err := client.Search(context.Background(), "dune", n)
		require.NoError(t, err)
		assert.Empty(t, books)
	}

	assert.Equal(t, []string{"3", "40", "8"}, got)
}

func TestSearch_BlankQuerySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	books, err := newTestClient(server.URL).Search(context.Background(), "   ", 5)

	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_APIKeyIsSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"totalItems":0}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "secret"})
	_, err := client.Search(context.Background(), "dune", 1)
	require.NoError(t, err)
}

func TestSearch_ErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "dune", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Google Books API error: 503")

	_, err = client.Search(context.Background(), "dune", 1)
	require.Error(t, err)

	_, err = client.Search(context.Background(), "dune", 1)
	require.Error(t, err)
	assert.True(t, resilience.IsOpen(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_CancelledCallersKeepBreakerClosed(t *testing.T) {
	var stall atomic.Bool
	stall.Store(true)
	flushed := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !stall.Load() {
			fmt.Fprint(w, volumesJSON)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [`)
		w.(http.Flusher).Flush()
		flushed <- struct{}{}
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-flushed
			cancel()
		}()
		_, err := client.Search(ctx, "dune", 1)
		cancel()
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, resilience.IsOpen(err))
	}

	stall.Store(false)
	books, err := client.Search(context.Background(), "dune", 1)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}
