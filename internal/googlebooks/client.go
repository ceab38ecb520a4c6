// Package googlebooks queries the Google Books volumes API and normalizes its results.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public volumes endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Client searches Google Books volumes with a per-request timeout and a request rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL; rps below 1 is raised to 1.
func NewClient(baseURL, apiKey string, timeout time.Duration, rps int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// volumesResponse matches the subset of GET /volumes that is used. Pointers tell absent from empty.
type volumesResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title         *string  `json:"title"`
			Authors       []string `json:"authors"`
			Description   *string  `json:"description"`
			PublishedDate *string  `json:"publishedDate"`
			PageCount     *int     `json:"pageCount"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search returns the normalized volumes matching query. An empty slice means no matches;
// an unreachable or failing provider is reported as ErrUpstreamUnavailable.
func (c *Client) Search(ctx context.Context, query string) ([]models.ExternalBook, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid google books url: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	u.RawQuery = params.Encode()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err, "book search provider unavailable")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err, "book search provider unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode), "book search provider unavailable")
	}

	var res volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamUnavailable, err, "book search provider returned an invalid response")
	}
	return normalize(res), nil
}

func normalize(res volumesResponse) []models.ExternalBook {
	books := make([]models.ExternalBook, 0, len(res.Items))
	for _, item := range res.Items {
		info := item.VolumeInfo
		book := models.ExternalBook{
			GoogleID: item.ID,
			Authors:  info.Authors,
		}
		if info.Title != nil {
			book.Title = *info.Title
		}
		if info.Description != nil {
			book.Description = *info.Description
		}
		if info.PublishedDate != nil {
			book.PublishedDate = *info.PublishedDate
		}
		if info.PageCount != nil {
			book.PageCount = *info.PageCount
		}
		books = append(books, book.WithDefaults())
	}
	return books
}
