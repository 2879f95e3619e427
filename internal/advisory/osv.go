// Package advisory queries public vulnerability data: batched lookups
// against OSV.dev and the CISA Known Exploited Vulnerabilities feed.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"go.uber.org/zap"
)

const (
	OSVBaseURL        = "https://api.osv.dev/v1"
	osvBatchPath      = "/querybatch"
	osvRequestTimeout = 15 * time.Second
	osvBatchWindow    = 1000
)

// EcosystemLabel maps an internal ecosystem identifier to the label
// OSV.dev expects in a query's package.ecosystem field.
var EcosystemLabel = map[graph.Ecosystem]string{
	graph.NPM:   "npm",
	graph.PyPI:  "PyPI",
	graph.Go:    "Go",
	graph.Maven: "Maven",
	graph.Cargo: "crates.io",
}

// Package identifies an ecosystem package in an OSV query or affected entry.
type Package struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// QueryRequest is one entry in an OSV batch query.
type QueryRequest struct {
	Package Package `json:"package"`
	Version string  `json:"version,omitempty"`
}

// QueryResponse holds the vulnerabilities OSV returned for one query.
type QueryResponse struct {
	Vulns []Vulnerability `json:"vulns"`
}

// Vulnerability is a single OSV advisory record, decoded defensively:
// every nested field is optional-access since the upstream shape varies
// across ecosystems.
type Vulnerability struct {
	ID               string            `json:"id"`
	Summary          string            `json:"summary"`
	Severity         []Severity        `json:"severity,omitempty"`
	Affected         []Affected        `json:"affected,omitempty"`
	Aliases          []string          `json:"aliases,omitempty"`
	DatabaseSpecific *DatabaseSpecific `json:"database_specific,omitempty"`
}

// DatabaseSpecific carries the ecosystem-defined severity override many
// GHSA-sourced advisories (npm/PyPI/Maven) supply in place of a CVSS
// vector.
type DatabaseSpecific struct {
	Severity string `json:"severity,omitempty"`
}

// Severity carries one severity vector. Score is opaque: it may be a
// CVSS vector string or a bare number depending on Type.
type Severity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// Affected describes the version ranges a vulnerability affects.
type Affected struct {
	Package Package        `json:"package"`
	Ranges  []VersionRange `json:"ranges,omitempty"`
}

// VersionRange is one ordered sequence of introduced/fixed events.
type VersionRange struct {
	Type   string  `json:"type"`
	Events []Event `json:"events"`
}

// Event is a single point in a version range: exactly one of
// Introduced or Fixed is set.
type Event struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}

// OSVClient batches vulnerability lookups against OSV.dev.
type OSVClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewOSVClient builds an OSV.dev batch query client.
func NewOSVClient(logger *zap.Logger, httpClient *http.Client, baseURL string) *OSVClient {
	if httpClient == nil {
		httpClient = httpclient.New(osvRequestTimeout)
	}
	if baseURL == "" {
		baseURL = OSVBaseURL
	}
	return &OSVClient{httpClient: httpClient, baseURL: baseURL, logger: logger}
}

// BatchQuery runs queries in windows of up to 1,000, preserving
// query order in the combined result. A window that fails is skipped;
// its slots in the result are left as empty QueryResponse values so
// index alignment with the input is preserved.
func (c *OSVClient) BatchQuery(ctx context.Context, queries []QueryRequest) []QueryResponse {
	if len(queries) == 0 {
		return nil
	}

	results := make([]QueryResponse, len(queries))
	for start := 0; start < len(queries); start += osvBatchWindow {
		end := start + osvBatchWindow
		if end > len(queries) {
			end = len(queries)
		}
		window := queries[start:end]
		windowResults, err := c.queryWindow(ctx, window)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("OSV batch window failed, skipping", zap.Int("offset", start), zap.Error(err))
			}
			continue
		}
		for i, r := range windowResults {
			if start+i < len(results) {
				results[start+i] = r
			}
		}
	}
	return results
}

func (c *OSVClient) queryWindow(ctx context.Context, queries []QueryRequest) ([]QueryResponse, error) {
	body, err := json.Marshal(map[string]interface{}{"queries": queries})
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+osvBatchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute batch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OSV batch API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var decoded struct {
		Results []QueryResponse `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return decoded.Results, nil
}

// BuildQueries prepares one OSV query per node, keyed the way the
// caller's node list is ordered. The version is omitted when empty or
// the literal "latest".
func BuildQueries(nodes []*graph.Node, ecosystem graph.Ecosystem) []QueryRequest {
	label := EcosystemLabel[ecosystem]
	queries := make([]QueryRequest, len(nodes))
	for i, n := range nodes {
		q := QueryRequest{Package: Package{Name: n.Name, Ecosystem: label}}
		if n.Version != "" && n.Version != "latest" {
			q.Version = n.Version
		}
		queries[i] = q
	}
	return queries
}
