package googlebooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 2*time.Second, 100)
}

func TestClient_SearchNormalizesVolumes(t *testing.T) {
	var gotQuery, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"items": [
				{"id": "abc", "volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "description": "Spice", "publishedDate": "1965", "pageCount": 412}},
				{"id": "def", "volumeInfo": {"title": "Dune Companion"}},
				{"id": "ghi", "volumeInfo": {}}
			]
		}`)
	})

	books, err := client.Search(context.Background(), "dune & spice/arrakis")
	require.NoError(t, err)

	assert.Equal(t, "dune & spice/arrakis", gotQuery, "query must arrive intact after percent-encoding")
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, books, 3)

	assert.Equal(t, models.ExternalBook{
		GoogleID: "abc", Title: "Dune", Authors: []string{"Frank Herbert"},
		Description: "Spice", PublishedDate: "1965", PageCount: 412,
	}, books[0])

	assert.Equal(t, []string{models.UnknownAuthor}, books[1].Authors)
	assert.Equal(t, "", books[1].Description)
	assert.Equal(t, 0, books[1].PageCount)

	assert.Equal(t, models.UntitledBook, books[2].Title)
	assert.Equal(t, []string{models.UnknownAuthor}, books[2].Authors)
}

func TestClient_SearchNoItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind": "books#volumes", "totalItems": 0}`)
	})

	books, err := client.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestClient_SearchUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items": [`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			books, err := client.Search(context.Background(), "dune")
			assert.Nil(t, books)
			assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
		})
	}
}

func TestClient_SearchTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, "", 50*time.Millisecond, 100)
	start := time.Now()
	_, err := client.Search(context.Background(), "dune")

	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_SearchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, "", time.Second, 100)
	_, err := client.Search(context.Background(), "dune")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}
