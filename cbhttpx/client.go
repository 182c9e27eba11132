package cbhttpx

import (
	"errors"
	"net/http"

	"github.com/couchbase/gocbstreamx/contrib/leakcheck"
)

type Client struct {
	Transport http.RoundTripper
}

func (c Client) GetHttpClient() *http.Client {
	return &http.Client{
		Transport: c.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// carry auth across redirects, taken from the oldest request
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}

			oldest := via[0]
			auth := oldest.Header.Get("Authorization")
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}

			return nil
		},
	}
}

// Do sends the request. Transport failures are wrapped in ConnectError.
func (c Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.GetHttpClient().Do(req)
	if err != nil {
		return nil, ConnectError{Cause: err}
	}

	return leakcheck.WrapHttpResponse(resp), nil
}
