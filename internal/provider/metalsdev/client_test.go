package metalsdev_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	metalsdev "metalprice/internal/provider/metalsdev"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	// Assert: a valid key should return a client.
	client, err := metalsdev.NewClient("test")
	require.NoErrorf(t, err, "unexpected error: %v", err)
	require.NotNilf(t, client, "unexpected nil client")

	// Assert: an empty key is rejected.
	client, err = metalsdev.NewClient("")
	require.ErrorIs(t, err, metalsdev.ErrMissingAPIKey)
	require.Nil(t, client)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: define a base url
	baseURL := "http://localhost:8080"

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			return jsonResponse(t, http.StatusOK, successBody), nil
		}).
		Times(1)

	// Arrange: create a new client.
	client, err := metalsdev.NewClient("test", metalsdev.WithHTTPClient(httpClient), metalsdev.WithBaseURL(baseURL))
	require.NoError(t, err)

	// Act: call Latest with the overridden base URL.
	_, err = client.Latest(t.Context(), "LKR", "g")
	require.NoError(t, err)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the custom header is forwarded
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))
			return jsonResponse(t, http.StatusOK, successBody), nil
		}).
		Times(1)

	// Arrange: create a new client with a custom header.
	client, err := metalsdev.NewClient("test", metalsdev.WithHTTPClient(httpClient), metalsdev.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)

	// Act: call Latest with the custom header.
	_, err = client.Latest(t.Context(), "LKR", "g")
	require.NoError(t, err)
}

func TestLatestURL(t *testing.T) {
	t.Parallel()

	client, err := metalsdev.NewClient("secret", metalsdev.WithBaseURL("https://example.test"))
	require.NoError(t, err)

	u := client.LatestURL("LKR", "g")
	require.True(t, strings.HasPrefix(u, "https://example.test/v1/latest?"), u)
	require.Contains(t, u, "api_key=secret")
	require.Contains(t, u, "currency=LKR")
	require.Contains(t, u, "unit=g")
}

// successBody is a trimmed /v1/latest payload.
var successBody = map[string]any{
	"status":   "success",
	"currency": "LKR",
	"unit":     "g",
	"metals": map[string]any{
		"gold":      34250.0,
		"silver":    418.0,
		"platinum":  9800.0,
		"palladium": 10400.0,
	},
	"timestamps": map[string]any{
		"metal":    "2026-03-01T09:29:05.033Z",
		"currency": "2026-03-01T09:29:05.033Z",
	},
}

// jsonResponse encodes body as a response with the given status code.
func jsonResponse(t *testing.T, code int, body any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(buffer),
	}
}
