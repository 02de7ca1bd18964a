package httpclient

import (
	"context"
	"net/http"
	"net/url"
)

// Query is a provider's typed request parameter set.
type Query interface {
	Values() url.Values
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, query Query, header http.Header) ([]byte, error)
}
