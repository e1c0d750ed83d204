package metalsdev

import (
	"errors"
	"net/http"
	"net/url"
)

const baseURL = "https://api.metals.dev"

// ErrMissingAPIKey is returned when the client is built without a key.
var ErrMissingAPIKey = errors.New("metals.dev api key is required")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=metalsdev_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the metals.dev API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// ClientOption is a configuration option for the metals.dev client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new metals.dev client.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	// metals.dev authenticates with a query parameter rather than a header.
	client.query.Add("api_key", key)
	for _, option := range options {
		option(client)
	}
	return client, nil
}
