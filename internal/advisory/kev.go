package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"go.uber.org/zap"
)

// DefaultKEVFeed is CISA's published Known Exploited Vulnerabilities
// catalog.
const (
	DefaultKEVFeed    = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	kevRequestTimeout = 15 * time.Second
)

type kevCatalog struct {
	Vulnerabilities []struct {
		CveID string `json:"cveID"`
	} `json:"vulnerabilities"`
}

// KEVClient fetches the CISA KEV catalog as a flat set of CVE IDs.
type KEVClient struct {
	httpClient *http.Client
	feedURL    string
	logger     *zap.Logger
}

// NewKEVClient builds a CISA KEV feed client.
func NewKEVClient(logger *zap.Logger, httpClient *http.Client, feedURL string) *KEVClient {
	if httpClient == nil {
		httpClient = httpclient.New(kevRequestTimeout)
	}
	if feedURL == "" {
		feedURL = DefaultKEVFeed
	}
	return &KEVClient{httpClient: httpClient, feedURL: feedURL, logger: logger}
}

// Fetch retrieves the current catalog and returns the set of exploited
// CVE IDs. On any failure it returns an empty set rather than an error:
// a KEV fetch failure degrades the exploited signal to "not exploited"
// for every package rather than failing the whole analysis.
func (c *KEVClient) Fetch(ctx context.Context) map[string]bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return map[string]bool{}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("CISA KEV feed request failed", zap.Error(err))
		}
		return map[string]bool{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if c.logger != nil {
			c.logger.Warn("CISA KEV feed returned non-200", zap.Int("status", resp.StatusCode))
		}
		return map[string]bool{}
	}

	var catalog kevCatalog
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		if c.logger != nil {
			c.logger.Warn("CISA KEV feed decode failed", zap.Error(err))
		}
		return map[string]bool{}
	}

	exploited := make(map[string]bool, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		if v.CveID != "" {
			exploited[v.CveID] = true
		}
	}
	return exploited
}
