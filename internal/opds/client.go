package opds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	acceptHeader = "application/atom+xml"

	// requestTimeout bounds the wait for response headers;
	// resourceTimeout bounds the full body read.
	requestTimeout  = 30 * time.Second
	resourceTimeout = 300 * time.Second
)

// Client fetches and parses OPDS catalog feeds.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an OPDS client with the protocol timeouts applied.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: resourceTimeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: requestTimeout,
			},
		},
	}
}

// FetchFeed GETs and parses the feed at feedURL. Credentials, when
// present, are sent as HTTP Basic auth. A 401 response surfaces as
// ErrAuthenticationRequired without populating any entries.
func (c *Client) FetchFeed(ctx context.Context, feedURL string, creds *Credentials) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("opds: build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrAuthenticationRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &ServerError{StatusCode: resp.StatusCode}
	}

	return parseFeed(resp.Body, feedURL)
}

// SearchCatalog queries a catalog by appending a q parameter to its base
// URL and returns the matching entries. This is a fixed convention, not
// OpenSearch description discovery; catalogs using a different search
// template will return their root feed or an error.
func (c *Client) SearchCatalog(ctx context.Context, catalogURL string, creds *Credentials, query string) ([]Entry, error) {
	searchURL, err := buildSearchURL(catalogURL, query)
	if err != nil {
		return nil, err
	}

	feed, err := c.FetchFeed(ctx, searchURL, creds)
	if err != nil {
		return nil, err
	}
	return feed.Entries, nil
}

func buildSearchURL(catalogURL, query string) (string, error) {
	u, err := url.Parse(catalogURL)
	if err != nil {
		return "", fmt.Errorf("opds: invalid catalog URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
