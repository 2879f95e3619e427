// Package pypireg adapts the PyPI JSON API to the registry.Adapter
// contract.
package pypireg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"go.uber.org/zap"
)

const (
	BaseURL        = "https://pypi.org"
	requestTimeout = 10 * time.Second
)

// Client fetches immediate dependencies and metadata for PyPI packages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// New creates a PyPI registry adapter.
func New(logger *zap.Logger, httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, logger: logger}
}

type pypiDoc struct {
	Info struct {
		License      string   `json:"license"`
		RequiresDist []string `json:"requires_dist"`
	} `json:"info"`
	Releases map[string][]struct {
		UploadTime string `json:"upload_time"`
	} `json:"releases"`
}

var requiresDistName = regexp.MustCompile(`^([A-Za-z0-9._-]+)`)
var requiresDistVersion = regexp.MustCompile(`[><=!~]+\s*([\d.]+)`)

// Fetch implements registry.Adapter for PyPI.
func (c *Client) Fetch(ctx context.Context, name, version string) ([]registry.DependencyRef, registry.Metadata, error) {
	endpoint := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))
	if version != "" {
		endpoint = fmt.Sprintf("%s/pypi/%s/%s/json", c.baseURL, url.PathEscape(name), url.PathEscape(version))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, registry.Metadata{}, nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("pypi request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return nil, registry.Metadata{}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, registry.Metadata{}, nil
	}

	var doc pypiDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, registry.Metadata{}, nil
	}

	meta := registry.Metadata{Licence: doc.Info.License}

	var deps []registry.DependencyRef
	for _, req := range doc.Info.RequiresDist {
		if strings.Contains(req, "extra ==") {
			continue
		}
		nameMatch := requiresDistName.FindStringSubmatch(req)
		if nameMatch == nil {
			continue
		}
		depName := strings.ToLower(strings.ReplaceAll(nameMatch[1], "_", "-"))
		depVersion := ""
		if verMatch := requiresDistVersion.FindStringSubmatch(req); verMatch != nil {
			depVersion = verMatch[1]
		}
		deps = append(deps, registry.DependencyRef{Name: depName, Version: depVersion})
	}

	if len(doc.Releases) > 0 {
		versions := make([]string, 0, len(doc.Releases))
		for v := range doc.Releases {
			versions = append(versions, v)
		}
		sort.Strings(versions)
		for _, v := range versions {
			if files := doc.Releases[v]; len(files) > 0 {
				meta.FirstPublished = truncateDate(files[0].UploadTime)
				break
			}
		}
		for i := len(versions) - 1; i >= 0; i-- {
			if files := doc.Releases[versions[i]]; len(files) > 0 {
				meta.LastPublished = truncateDate(files[0].UploadTime)
				break
			}
		}
	}

	return deps, meta, nil
}

func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
