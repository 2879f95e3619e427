// Package goreg adapts the Go module proxy to the registry.Adapter
// contract. The proxy exposes no licence metadata, so this adapter
// reports a hard-coded BSD-3-Clause approximation (see DESIGN.md).
package goreg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"go.uber.org/zap"
)

const (
	BaseURL             = "https://proxy.golang.org"
	requestTimeout      = 10 * time.Second
	assumedGoModLicence = "BSD-3-Clause"
)

// Client fetches immediate dependencies for Go modules via go.mod
// files served by the module proxy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// New creates a Go module-proxy adapter.
func New(logger *zap.Logger, httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, logger: logger}
}

// Fetch implements registry.Adapter for the go ecosystem.
func (c *Client) Fetch(ctx context.Context, name, version string) ([]registry.DependencyRef, registry.Metadata, error) {
	var endpoint string
	if version != "" {
		endpoint = fmt.Sprintf("%s/%s/@v/v%s.mod", c.baseURL, name, version)
	} else {
		endpoint = fmt.Sprintf("%s/%s/@latest", c.baseURL, name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, registry.Metadata{}, nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("go proxy request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return nil, registry.Metadata{}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, registry.Metadata{}, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, registry.Metadata{}, nil
	}

	var deps []registry.DependencyRef
	inRequire := false
	for _, rawLine := range strings.Split(string(body), "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
			continue
		case inRequire && line == ")":
			inRequire = false
			continue
		case inRequire || strings.HasPrefix(line, "require "):
			parts := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(parts) >= 2 && !strings.HasPrefix(parts[0], "//") {
				deps = append(deps, registry.DependencyRef{Name: parts[0], Version: strings.TrimPrefix(parts[1], "v")})
			}
		}
	}

	return deps, registry.Metadata{Licence: assumedGoModLicence}, nil
}
