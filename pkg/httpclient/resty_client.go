package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when the caller supplies no User-Agent header.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/127.0.0.0 Safari/537.36 samvad-news-digest"

const maxRedirects = 5

// RestyClient is the production Client.
type RestyClient struct {
	rc *resty.Client
}

// NewRestyClient bounds every request by timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{rc: NewResty(timeout)}
}

// NewResty returns a bare resty client carrying the shared timeout, user agent and redirect limit.
func NewResty(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", DefaultUserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
}

// Get issues a GET with headers layered over the client defaults. *resty.Response already
// satisfies Response, so it is returned unwrapped.
func (c *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := c.rc.R().SetContext(ctx).SetHeaders(headers).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}
