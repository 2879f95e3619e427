// Package orchestrator sequences manifest parsing, graph resolution,
// advisory lookup, risk scoring, and path analysis under a single
// wall-clock budget, wrapped in a cache lookup/store.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/advisory"
	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
	"github.com/NFrozeCLAWDBOT/bastion/internal/manifest"
	"github.com/NFrozeCLAWDBOT/bastion/internal/path"
	"github.com/NFrozeCLAWDBOT/bastion/internal/providers/spdx"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/cargoreg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/goreg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/mavenreg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/npmreg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/pypireg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/risk"
	"github.com/NFrozeCLAWDBOT/bastion/internal/sbom"
	"go.uber.org/zap"
)

// Config carries the orchestrator's tunables, named after spec's
// environment variables.
type Config struct {
	TableName      string
	TimeoutSeconds int
	MaxDepth       int
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{TableName: "bastion-cache", TimeoutSeconds: 50, MaxDepth: graph.MaxDepth}
}

// ResultCache is the external persistent result cache collaborator.
// *cache.Cache from github.com/rayprogramming/hypermcp/cache satisfies
// this interface.
type ResultCache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
}

const cacheTTL = 24 * time.Hour

// CORSHeaders and CORSAllowOrigin describe the cross-origin policy the
// (out of scope) HTTP entry shim around this orchestrator should
// apply. They're exported here so a future HTTP transport has one
// canonical place to read them from.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

const CORSAllowOrigin = "*"

// ClientError represents a caller-supplied input problem: HTTP 400.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string { return e.Message }

// InternalError represents an unexpected orchestrator failure: HTTP 500.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return "Internal error: " + e.Message }

// AnalyseRequest is the analyser's request body (spec.md §6).
type AnalyseRequest struct {
	Manifest  string `json:"manifest"`
	Ecosystem string `json:"ecosystem"`
}

// RiskSummary tallies nodes by risk level, excluding "unknown".
type RiskSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	None     int `json:"none"`
}

// Maintenance mirrors a node's publication/activity signals.
type Maintenance struct {
	LastPublished    string `json:"lastPublished"`
	FirstPublished   string `json:"firstPublished"`
	WeeklyDownloads  int    `json:"weeklyDownloads"`
	ReleaseFrequency string `json:"releaseFrequency"`
}

// Licence mirrors a node's normalised licence, its risk bucket, and a
// descriptive category pulled from the SPDX reference table.
type Licence struct {
	SPDX     string `json:"spdx"`
	Risk     string `json:"risk"`
	Category string `json:"category"`
}

// NodeView is the externally-rendered form of a graph.Node, per
// spec.md §3/§6.
type NodeView struct {
	Name            string                      `json:"name"`
	Version         string                      `json:"version"`
	Ecosystem       string                      `json:"ecosystem"`
	Depth           int                         `json:"depth"`
	IsDirect        bool                        `json:"isDirect"`
	DependsOn       []string                    `json:"dependsOn"`
	DependedOnBy    []string                    `json:"dependedOnBy"`
	ResolutionError bool                        `json:"resolutionError"`
	Vulnerabilities []graph.VulnerabilityRecord `json:"vulnerabilities"`
	RiskScore       int                         `json:"riskScore"`
	RiskLevel       string                      `json:"riskLevel"`
	Maintenance     Maintenance                 `json:"maintenance"`
	Licence         Licence                     `json:"licence"`
}

// Response is the analyser's success envelope (spec.md §6).
type Response struct {
	Ecosystem              string        `json:"ecosystem"`
	Root                   string        `json:"root"`
	TotalDependencies      int           `json:"totalDependencies"`
	DirectDependencies     int           `json:"directDependencies"`
	TransitiveDependencies int           `json:"transitiveDependencies"`
	RiskSummary            RiskSummary   `json:"riskSummary"`
	Nodes                  []NodeView    `json:"nodes"`
	RiskiestPaths          []path.Record `json:"riskiestPaths"`
}

// ErrorResponse is the analyser's failure envelope (spec.md §7).
type ErrorResponse struct {
	Error string `json:"error"`
}

// Orchestrator wires together every component under one wall-clock
// budget and a cache lookup/store wrap.
type Orchestrator struct {
	cfg      Config
	cache    ResultCache
	logger   *zap.Logger
	resolver *graph.Resolver
	osv      *advisory.OSVClient
	kev      *advisory.KEVClient
	scorer   *risk.Scorer
	licences *spdx.Client
}

// New builds an orchestrator with the default production adapters for
// every ecosystem.
func New(cfg Config, cache ResultCache, logger *zap.Logger, httpClient *http.Client) *Orchestrator {
	adapters := map[graph.Ecosystem]registry.Adapter{
		graph.NPM:   npmreg.New(logger, httpClient, "", ""),
		graph.PyPI:  pypireg.New(logger, httpClient, ""),
		graph.Go:    goreg.New(logger, httpClient, ""),
		graph.Maven: mavenreg.New(logger, httpClient, "", ""),
		graph.Cargo: cargoreg.New(logger, httpClient, ""),
	}
	return &Orchestrator{
		cfg:      cfg,
		cache:    cache,
		logger:   logger,
		resolver: graph.NewResolver(adapters, logger),
		osv:      advisory.NewOSVClient(logger, httpClient, ""),
		kev:      advisory.NewKEVClient(logger, httpClient, ""),
		scorer:   risk.NewScorer(nil),
		licences: spdx.NewClient(logger),
	}
}

// Analyse runs the full spec.md §4.8 sequence: cache check, manifest
// parse, bounded-depth resolution, advisory batching, scoring, path
// analysis, cache store.
func (o *Orchestrator) Analyse(ctx context.Context, req AnalyseRequest) (*Response, error) {
	if req.Manifest == "" {
		return nil, &ClientError{Message: "manifest is required"}
	}
	ecosystem := graph.Ecosystem(req.Ecosystem)
	if !ecosystem.Valid() {
		return nil, &ClientError{Message: fmt.Sprintf("unsupported ecosystem: %q", req.Ecosystem)}
	}

	cacheKey := manifestHash(req.Manifest)
	if o.cache != nil {
		if cached, ok := o.cache.Get(cacheKey); ok {
			if resp, ok := cached.(*Response); ok {
				return resp, nil
			}
		}
	}

	start := time.Now()

	direct := manifest.Parse(ecosystem, req.Manifest)
	if len(direct) == 0 {
		return nil, &ClientError{Message: "manifest contained no dependencies"}
	}

	directRefs := make([]registry.DependencyRef, 0, len(direct))
	for _, d := range direct {
		directRefs = append(directRefs, registry.DependencyRef{Name: d.Name, Version: d.Version})
	}

	set := graph.NewSet()
	budget := graph.NewBudget(time.Duration(o.cfg.TimeoutSeconds) * time.Second)
	o.resolver.Resolve(ctx, ecosystem, directRefs, set, budget)

	nodes := set.Nodes()
	queries := advisory.BuildQueries(nodes, ecosystem)
	results := o.osv.BatchQuery(ctx, queries)
	vulnsByKey := make(map[graph.Key][]advisory.Vulnerability, len(nodes))
	for i, n := range nodes {
		if i < len(results) {
			vulnsByKey[graph.NewKey(n.Name, n.RawVersion)] = results[i].Vulns
		}
	}
	exploited := o.kev.Fetch(ctx)

	o.scorer.Score(set, vulnsByKey, exploited)

	riskiestPaths := path.Analyse(set)

	resp := o.buildResponse(set, ecosystem, riskiestPaths)

	if o.cache != nil {
		o.cache.Set(cacheKey, resp, cacheTTL)
	}

	if o.logger != nil {
		o.logger.Info("analysis complete",
			zap.String("ecosystem", string(ecosystem)),
			zap.Int("totalDependencies", resp.TotalDependencies),
			zap.Duration("elapsed", time.Since(start)))
	}

	return resp, nil
}

func (o *Orchestrator) buildResponse(set *graph.Set, ecosystem graph.Ecosystem, riskiestPaths []path.Record) *Response {
	nodes := set.Nodes()
	views := make([]NodeView, 0, len(nodes))
	summary := RiskSummary{}
	directCount := 0

	for _, n := range nodes {
		if n.IsDirect {
			directCount++
		}
		switch n.RiskLevel {
		case "critical":
			summary.Critical++
		case "high":
			summary.High++
		case "medium":
			summary.Medium++
		case "low":
			summary.Low++
		case "none":
			summary.None++
		}

		views = append(views, NodeView{
			Name:            n.Name,
			Version:         n.Version,
			Ecosystem:       string(ecosystem),
			Depth:           n.Depth,
			IsDirect:        n.IsDirect,
			DependsOn:       keysToStrings(n.DependsOn),
			DependedOnBy:    keysToStrings(n.DependedOnBy),
			ResolutionError: n.ResolutionError,
			Vulnerabilities: n.Vulnerabilities,
			RiskScore:       n.RiskScore,
			RiskLevel:       n.RiskLevel,
			Maintenance: Maintenance{
				LastPublished:    n.LastPublished,
				FirstPublished:   n.FirstPublished,
				WeeklyDownloads:  n.WeeklyDownloads,
				ReleaseFrequency: n.ReleaseFrequency,
			},
			Licence: Licence{SPDX: n.LicenceSPDX, Risk: n.LicenceRiskLevel, Category: o.categoryFor(n.LicenceSPDX)},
		})
	}

	return &Response{
		Ecosystem:              string(ecosystem),
		Root:                   "project@0.0.0",
		TotalDependencies:      len(nodes),
		DirectDependencies:     directCount,
		TransitiveDependencies: len(nodes) - directCount,
		RiskSummary:            summary,
		Nodes:                  views,
		RiskiestPaths:          riskiestPaths,
	}
}

func (o *Orchestrator) categoryFor(spdxID string) string {
	if o.licences == nil || spdxID == "" {
		return "Unknown"
	}
	return o.licences.CategoryFor(spdxID)
}

func keysToStrings(keys []graph.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// SBOM builds a CycloneDX 1.5 document from a previously-analysed node
// list, per spec.md §4.7.
func (o *Orchestrator) SBOM(nodes []NodeView, ecosystem, root string) sbom.Document {
	dtos := make([]sbom.NodeDTO, 0, len(nodes))
	for _, n := range nodes {
		vulnDTOs := make([]sbom.VulnerabilityDTO, 0, len(n.Vulnerabilities))
		for _, v := range n.Vulnerabilities {
			vulnDTOs = append(vulnDTOs, sbom.VulnerabilityDTO{
				ID: v.ID, Summary: v.Summary, Severity: v.Severity, CVSS: v.CVSS, FixedIn: v.FixedIn, CisaKev: v.CisaKev,
			})
		}
		dtos = append(dtos, sbom.NodeDTO{
			Name:            n.Name,
			Version:         n.Version,
			DependsOn:       n.DependsOn,
			LicenceSPDX:     n.Licence.SPDX,
			Vulnerabilities: vulnDTOs,
		})
	}
	if root == "" {
		root = "project@0.0.0"
	}
	return sbom.Emit(dtos, ecosystem, root, time.Now().UTC().Format("2006-01-02T15:04:05Z"), sbom.NewSerialUUID)
}

func manifestHash(manifest string) string {
	sum := sha256.Sum256([]byte(manifest))
	return hex.EncodeToString(sum[:])
}
