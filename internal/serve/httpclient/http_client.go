package httpclient

import (
	"net/http"
	"net/url"
	"time"
)

type HTTPClientInterface interface {
	Do(*http.Request) (*http.Response, error)
	Get(url string) (resp *http.Response, err error)
	PostForm(url string, data url.Values) (resp *http.Response, err error)
}

const TimeoutClientInSeconds = 40

// DefaultClient returns a default HTTP client with a timeout.
func DefaultClient() HTTPClientInterface {
	return &http.Client{Timeout: TimeoutClientInSeconds * time.Second}
}

// NewClientWithTimeout returns an HTTP client with a caller-provided timeout. The provider
// and webhook paths use tighter deadlines than the default.
func NewClientWithTimeout(timeout time.Duration) HTTPClientInterface {
	return &http.Client{Timeout: timeout}
}

var _ HTTPClientInterface = DefaultClient()
