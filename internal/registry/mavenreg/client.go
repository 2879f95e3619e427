// Package mavenreg adapts Maven Central (Solr search plus the raw
// repository layout) to the registry.Adapter contract.
package mavenreg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"go.uber.org/zap"
)

const (
	SearchBaseURL  = "https://search.maven.org"
	RepoBaseURL    = "https://repo1.maven.org/maven2"
	requestTimeout = 10 * time.Second
)

// Client fetches immediate dependencies and metadata for Maven
// coordinates of the form "groupId:artifactId".
type Client struct {
	httpClient *http.Client
	searchURL  string
	repoURL    string
	logger     *zap.Logger
}

// New creates a Maven Central registry adapter.
func New(logger *zap.Logger, httpClient *http.Client, searchURL, repoURL string) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	if searchURL == "" {
		searchURL = SearchBaseURL
	}
	if repoURL == "" {
		repoURL = RepoBaseURL
	}
	return &Client{httpClient: httpClient, searchURL: searchURL, repoURL: repoURL, logger: logger}
}

type solrResponse struct {
	Response struct {
		Docs []struct {
			LatestVersion string `json:"latestVersion"`
			Version       string `json:"v"`
			Timestamp     int64  `json:"timestamp"`
		} `json:"docs"`
	} `json:"response"`
}

var (
	mavenDependencyBlock = regexp.MustCompile(`(?s)<dependency>(.*?)</dependency>`)
	mavenArtifactID      = regexp.MustCompile(`<artifactId>\s*([^<\s]+)\s*</artifactId>`)
	mavenGroupID         = regexp.MustCompile(`<groupId>\s*([^<\s]+)\s*</groupId>`)
	mavenVersionTag      = regexp.MustCompile(`<version>\s*([^<\s]+)\s*</version>`)
	mavenScopeTag        = regexp.MustCompile(`<scope>\s*([^<\s]+)\s*</scope>`)
	mavenOptionalTag     = regexp.MustCompile(`<optional>\s*true\s*</optional>`)
)

// Fetch implements registry.Adapter for maven, expecting name in the
// "groupId:artifactId" form.
func (c *Client) Fetch(ctx context.Context, name, version string) ([]registry.DependencyRef, registry.Metadata, error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 {
		return nil, registry.Metadata{}, nil
	}
	groupID, artifactID := parts[0], parts[1]

	meta := registry.Metadata{}
	resolvedVersion := version

	var solr solrResponse
	searchEndpoint := fmt.Sprintf("%s/solrsearch/select?q=g:%s+AND+a:%s&rows=1&wt=json", c.searchURL, groupID, artifactID)
	if resolvedVersion != "" {
		searchEndpoint = fmt.Sprintf("%s/solrsearch/select?q=g:%s+AND+a:%s+AND+v:%s&core=gav&rows=1&wt=json", c.searchURL, groupID, artifactID, resolvedVersion)
	}
	if c.getJSON(ctx, searchEndpoint, &solr) && len(solr.Response.Docs) > 0 {
		doc := solr.Response.Docs[0]
		if resolvedVersion == "" {
			resolvedVersion = doc.LatestVersion
			if resolvedVersion == "" {
				resolvedVersion = doc.Version
			}
		}
		if doc.Timestamp > 0 {
			meta.LastPublished = time.UnixMilli(doc.Timestamp).UTC().Format("2006-01-02")
		}
	}

	var deps []registry.DependencyRef
	if resolvedVersion != "" {
		pomPath := strings.ReplaceAll(groupID, ".", "/")
		pomEndpoint := fmt.Sprintf("%s/%s/%s/%s/%s-%s.pom", c.repoURL, pomPath, artifactID, resolvedVersion, artifactID, resolvedVersion)
		if body, ok := c.getText(ctx, pomEndpoint); ok {
			deps = parsePomDependencies(body)
		}
	}

	return deps, meta, nil
}

func parsePomDependencies(pom string) []registry.DependencyRef {
	var deps []registry.DependencyRef
	for _, block := range mavenDependencyBlock.FindAllString(pom, -1) {
		if mavenScopeTag.MatchString(block) {
			scope := mavenScopeTag.FindStringSubmatch(block)[1]
			if scope == "test" || scope == "provided" {
				continue
			}
		}
		if mavenOptionalTag.MatchString(block) {
			continue
		}
		artifactMatch := mavenArtifactID.FindStringSubmatch(block)
		groupMatch := mavenGroupID.FindStringSubmatch(block)
		if artifactMatch == nil || groupMatch == nil {
			continue
		}
		depVersion := ""
		if verMatch := mavenVersionTag.FindStringSubmatch(block); verMatch != nil {
			depVersion = verMatch[1]
		}
		deps = append(deps, registry.DependencyRef{
			Name:    groupMatch[1] + ":" + artifactMatch[1],
			Version: depVersion,
		})
	}
	return deps
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("maven search request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(dest) == nil
}

func (c *Client) getText(ctx context.Context, endpoint string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("maven repo request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}
