// Package tools registers the MCP tools this analyser exposes:
// deps.analyze and deps.sbom.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/orchestrator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rayprogramming/hypermcp"
	"github.com/rayprogramming/hypermcp/cache"
	"go.uber.org/zap"
)

// defaultRequestTimeout bounds every outbound registry/advisory call
// the shared client makes; the per-request wall-clock budget in
// orchestrator.Config governs the overall analysis instead.
const defaultRequestTimeout = 15 * time.Second

// ToolRegistry manages all MCP tools.
type ToolRegistry struct {
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
}

// NewToolRegistry creates a new tool registry backed by the
// dependency-risk orchestrator.
func NewToolRegistry(logger *zap.Logger, c *cache.Cache) (*ToolRegistry, error) {
	cfg := orchestrator.DefaultConfig()
	return &ToolRegistry{
		orchestrator: orchestrator.New(cfg, c, logger, httpclient.New(defaultRequestTimeout)),
		logger:       logger,
	}, nil
}

// AnalyzeInput defines input for the deps.analyze tool.
type AnalyzeInput struct {
	Manifest  string `json:"manifest"`
	Ecosystem string `json:"ecosystem"`
}

// HandleAnalyze implements deps.analyze: full manifest parsing, graph
// resolution, vulnerability scoring, and riskiest-path analysis.
func (tr *ToolRegistry) HandleAnalyze(ctx context.Context, input AnalyzeInput) (*orchestrator.Response, error) {
	resp, err := tr.orchestrator.Analyse(ctx, orchestrator.AnalyseRequest{
		Manifest:  input.Manifest,
		Ecosystem: input.Ecosystem,
	})
	if err != nil {
		return nil, fmt.Errorf("analyse: %w", err)
	}
	return resp, nil
}

// SBOMInput defines input for the deps.sbom tool.
type SBOMInput struct {
	Nodes     []orchestrator.NodeView `json:"nodes"`
	Ecosystem string                  `json:"ecosystem"`
	Root      string                  `json:"root,omitempty"`
}

// HandleSBOM implements deps.sbom: renders a previously-analysed node
// list as a CycloneDX 1.5 document.
func (tr *ToolRegistry) HandleSBOM(ctx context.Context, input SBOMInput) (interface{}, error) {
	doc := tr.orchestrator.SBOM(input.Nodes, input.Ecosystem, input.Root)
	return doc, nil
}

// Register registers all tools with the server.
func (tr *ToolRegistry) Register(srv *hypermcp.Server) error {
	mcpServer := srv.MCP()

	mcpServer.AddTool(
		&mcp.Tool{
			Name:        "deps.analyze",
			Description: "Parse a manifest, resolve its transitive dependency tree, query OSV.dev and the CISA KEV feed, and score every package's risk. Supports npm, pypi, go, maven, and cargo manifests.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"manifest": map[string]interface{}{
						"type":        "string",
						"description": "The raw manifest text (package.json, requirements.txt, go.mod, pom.xml, or Cargo.toml contents)",
					},
					"ecosystem": map[string]interface{}{
						"type":        "string",
						"description": "Package ecosystem (npm, pypi, go, maven, cargo)",
					},
				},
				"required": []string{"manifest", "ecosystem"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var params AnalyzeInput
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Invalid input: %v", err)}},
					IsError: true,
				}, nil
			}

			result, err := tr.HandleAnalyze(ctx, params)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}

			data, _ := json.MarshalIndent(result, "", "  ")
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
			}, nil
		},
	)
	srv.IncrementToolCount()

	mcpServer.AddTool(
		&mcp.Tool{
			Name:        "deps.sbom",
			Description: "Render a previously-analysed dependency node list as a CycloneDX 1.5 SBOM with embedded vulnerability (VEX) records.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"nodes": map[string]interface{}{
						"type":        "array",
						"description": "The nodes array returned by deps.analyze",
					},
					"ecosystem": map[string]interface{}{
						"type":        "string",
						"description": "Package ecosystem (npm, pypi, go, maven, cargo)",
					},
					"root": map[string]interface{}{
						"type":        "string",
						"description": "Optional root component identity, defaults to project@0.0.0",
					},
				},
				"required": []string{"nodes", "ecosystem"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var params SBOMInput
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Invalid input: %v", err)}},
					IsError: true,
				}, nil
			}

			result, err := tr.HandleSBOM(ctx, params)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}

			data, _ := json.MarshalIndent(result, "", "  ")
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
			}, nil
		},
	)
	srv.IncrementToolCount()

	return nil
}
