// Package npmreg adapts the npm registry to the registry.Adapter
// contract, grounded on the teacher's deps.dev client shape.
package npmreg

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
	RegistryBaseURL  = "https://registry.npmjs.org"
	DownloadsBaseURL = "https://api.npmjs.org/downloads/point/last-week"
	requestTimeout   = 10 * time.Second
)

// Client fetches immediate dependencies and metadata for npm packages.
type Client struct {
	httpClient       *http.Client
	registryBaseURL  string
	downloadsBaseURL string
	logger           *zap.Logger
}

// New creates an npm registry adapter. httpClient and the base URLs
// may be overridden in tests to point at an httptest server.
func New(logger *zap.Logger, httpClient *http.Client, registryBaseURL, downloadsBaseURL string) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	if registryBaseURL == "" {
		registryBaseURL = RegistryBaseURL
	}
	if downloadsBaseURL == "" {
		downloadsBaseURL = DownloadsBaseURL
	}
	return &Client{httpClient: httpClient, registryBaseURL: registryBaseURL, downloadsBaseURL: downloadsBaseURL, logger: logger}
}

type versionDoc struct {
	Dependencies json.RawMessage `json:"dependencies"`
	License      json.RawMessage `json:"license"`
}

type packageDoc struct {
	Time struct {
		Created  string `json:"created"`
		Modified string `json:"modified"`
	} `json:"time"`
	License json.RawMessage `json:"license"`
}

func decodeLicence(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asObject struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.Type
	}
	return ""
}

// Fetch implements registry.Adapter for npm.
func (c *Client) Fetch(ctx context.Context, name, version string) ([]registry.DependencyRef, registry.Metadata, error) {
	escaped := url.PathEscape(name)

	versionPath := version
	if versionPath == "" {
		versionPath = "latest"
	}
	doc, ok := c.getVersionDoc(ctx, escaped, versionPath)
	if !ok && versionPath != "latest" {
		doc, ok = c.getVersionDoc(ctx, escaped, "latest")
	}

	var deps []registry.DependencyRef
	meta := registry.Metadata{}
	if ok {
		for _, ref := range registry.DecodeOrderedStringObject(doc.Dependencies) {
			deps = append(deps, registry.DependencyRef{Name: ref.Name, Version: registry.CleanVersion(ref.Version)})
		}
		meta.Licence = decodeLicence(doc.License)
	}

	if pkg, ok := c.getPackageDoc(ctx, escaped); ok {
		meta.FirstPublished = pkg.Time.Created
		meta.LastPublished = pkg.Time.Modified
		if meta.Licence == "" {
			meta.Licence = decodeLicence(pkg.License)
		}
	}

	meta.WeeklyDownloads = c.getWeeklyDownloads(ctx, escaped)

	return deps, meta, nil
}

func (c *Client) getVersionDoc(ctx context.Context, escapedName, version string) (versionDoc, bool) {
	var doc versionDoc
	endpoint := fmt.Sprintf("%s/%s/%s", c.registryBaseURL, escapedName, version)
	if !c.getJSON(ctx, endpoint, &doc) {
		return versionDoc{}, false
	}
	return doc, true
}

func (c *Client) getPackageDoc(ctx context.Context, escapedName string) (packageDoc, bool) {
	var doc packageDoc
	endpoint := fmt.Sprintf("%s/%s", c.registryBaseURL, escapedName)
	if !c.getJSON(ctx, endpoint, &doc) {
		return packageDoc{}, false
	}
	return doc, true
}

func (c *Client) getWeeklyDownloads(ctx context.Context, escapedName string) int {
	var result struct {
		Downloads int `json:"downloads"`
	}
	endpoint := fmt.Sprintf("%s/%s", c.downloadsBaseURL, escapedName)
	if !c.getJSON(ctx, endpoint, &result) {
		return 0
	}
	return result.Downloads
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("npm registry request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(dest) == nil
}
