// Package cargoreg adapts the crates.io API to the registry.Adapter
// contract.
package cargoreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"go.uber.org/zap"
)

const (
	BaseURL        = "https://crates.io/api/v1"
	requestTimeout = 10 * time.Second
)

// Client fetches immediate dependencies and metadata for cargo crates.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// New creates a crates.io registry adapter.
func New(logger *zap.Logger, httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, logger: logger}
}

type crateSummary struct {
	Crate struct {
		CreatedAt       string `json:"created_at"`
		UpdatedAt       string `json:"updated_at"`
		NewestVersion   string `json:"newest_version"`
		RecentDownloads int    `json:"recent_downloads"`
	} `json:"crate"`
}

type crateDependencies struct {
	Dependencies []struct {
		CrateID string `json:"crate_id"`
		Req     string `json:"req"`
		Kind    string `json:"kind"`
	} `json:"dependencies"`
}

// Fetch implements registry.Adapter for cargo.
func (c *Client) Fetch(ctx context.Context, name, version string) ([]registry.DependencyRef, registry.Metadata, error) {
	meta := registry.Metadata{}
	resolvedVersion := version

	var summary crateSummary
	summaryURL := fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(name))
	if c.getJSON(ctx, summaryURL, &summary) {
		meta.FirstPublished = truncateDate(summary.Crate.CreatedAt)
		meta.LastPublished = truncateDate(summary.Crate.UpdatedAt)
		meta.WeeklyDownloads = summary.Crate.RecentDownloads
		if resolvedVersion == "" {
			resolvedVersion = summary.Crate.NewestVersion
		}
	}

	var deps []registry.DependencyRef
	if resolvedVersion != "" {
		var depsDoc crateDependencies
		depsURL := fmt.Sprintf("%s/crates/%s/%s/dependencies", c.baseURL, url.PathEscape(name), url.PathEscape(resolvedVersion))
		if c.getJSON(ctx, depsURL, &depsDoc) {
			for _, d := range depsDoc.Dependencies {
				if d.Kind != "normal" {
					continue
				}
				deps = append(deps, registry.DependencyRef{Name: d.CrateID, Version: registry.CleanVersion(d.Req)})
			}
		}
	}

	return deps, meta, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("crates.io request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(dest) == nil
}

func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
