// Package httpclient builds the single HTTP client every registry,
// advisory, and feed client shares: one transport, constructed once
// per process, that stamps every outbound request with this
// analyser's identifying User-Agent header.
package httpclient

import (
	"net/http"
	"time"
)

// UserAgent identifies this analyser to upstream registries and
// advisory databases, per spec's "user-agent identifies the analyser"
// requirement.
const UserAgent = "Bastion/1.0 (dependency-risk-analyser)"

// New builds an *http.Client with the given timeout whose transport
// injects UserAgent on every request. A zero timeout means no
// timeout, matching http.DefaultClient's own default.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", UserAgent)
	return t.base.RoundTrip(req)
}
