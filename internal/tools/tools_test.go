package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/httpclient"
	"github.com/NFrozeCLAWDBOT/bastion/internal/orchestrator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func newTestRegistry() *ToolRegistry {
	logger, _ := zap.NewDevelopment()
	return &ToolRegistry{
		orchestrator: orchestrator.New(orchestrator.DefaultConfig(), nil, logger, httpclient.New(15*time.Second)),
		logger:       logger,
	}
}

func TestHandleAnalyzeRejectsEmptyManifest(t *testing.T) {
	registry := newTestRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := registry.HandleAnalyze(ctx, AnalyzeInput{Manifest: "", Ecosystem: "npm"})
	if err == nil {
		t.Fatal("expected an error for an empty manifest")
	}
}

func TestHandleAnalyzeToolWiring(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities":[]}`))
	}))
	defer srv.Close()

	registry := newTestRegistry()

	args, _ := json.Marshal(AnalyzeInput{Manifest: "", Ecosystem: "npm"})
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      "deps.analyze",
			Arguments: args,
		},
	}

	var params AnalyzeInput
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		t.Fatalf("unmarshal request args: %v", err)
	}
	if _, err := registry.HandleAnalyze(context.Background(), params); err == nil {
		t.Fatal("expected the empty-manifest request to surface a client error")
	}
}

func TestHandleSBOMRendersDocument(t *testing.T) {
	registry := newTestRegistry()

	result, err := registry.HandleSBOM(context.Background(), SBOMInput{
		Ecosystem: "npm",
		Nodes: []orchestrator.NodeView{
			{Name: "left-pad", Version: "1.3.0"},
		},
	})
	if err != nil {
		t.Fatalf("HandleSBOM() error = %v", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal SBOM result: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("SBOM output is not valid JSON: %v", err)
	}
	if decoded["bomFormat"] != "CycloneDX" {
		t.Errorf("expected bomFormat CycloneDX, got %v", decoded["bomFormat"])
	}
}
