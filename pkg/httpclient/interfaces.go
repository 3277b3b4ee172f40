package httpclient

import "context"

// Response is the part of an HTTP response the fetcher and publishers inspect.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client performs GET requests. Non-2xx statuses are returned as responses, not errors.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
