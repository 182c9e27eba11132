package cbhttpx

import (
	"context"
	"io"
	"net/http"
)

type RequestBuilder struct {
	UserAgent string
	Endpoint  string
	Auth      Authenticator
}

func (h RequestBuilder) NewRequest(
	ctx context.Context,
	method, path, contentType string,
	headers map[string]string,
	body io.Reader,
) (*http.Request, error) {
	uri := h.Endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if h.Auth != nil {
		h.Auth.ApplyToRequest(req)
	}

	return req, nil
}
