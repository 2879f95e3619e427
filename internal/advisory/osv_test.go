package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
)

func TestBatchQueryOrderPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"vulns":[]},{"vulns":[{"id":"CVE-2023-32681","summary":"requests leaks proxy creds","aliases":["CVE-2023-32681"]}]}]}`))
	}))
	defer srv.Close()

	client := NewOSVClient(nil, srv.Client(), srv.URL)
	queries := []QueryRequest{
		{Package: Package{Name: "left-pad", Ecosystem: "npm"}, Version: "1.3.0"},
		{Package: Package{Name: "requests", Ecosystem: "PyPI"}, Version: "2.0.0"},
	}

	results := client.BatchQuery(context.Background(), queries)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0].Vulns) != 0 {
		t.Errorf("expected left-pad to have no vulns, got %+v", results[0].Vulns)
	}
	if len(results[1].Vulns) != 1 || results[1].Vulns[0].ID != "CVE-2023-32681" {
		t.Errorf("expected requests to carry CVE-2023-32681, got %+v", results[1].Vulns)
	}
}

func TestBatchQueryWindowFailureSkipsOnlyThatWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOSVClient(nil, srv.Client(), srv.URL)
	results := client.BatchQuery(context.Background(), []QueryRequest{
		{Package: Package{Name: "a", Ecosystem: "npm"}},
	})
	if len(results) != 1 {
		t.Fatalf("expected a zero-value slot to be preserved, got %d", len(results))
	}
}

func TestBuildQueriesOmitsLatestVersion(t *testing.T) {
	nodes := []*graph.Node{
		{Name: "left-pad", Version: "1.3.0"},
		{Name: "foo", Version: "latest"},
	}
	queries := BuildQueries(nodes, graph.NPM)
	if queries[0].Version != "1.3.0" {
		t.Errorf("expected pinned version, got %q", queries[0].Version)
	}
	if queries[1].Version != "" {
		t.Errorf("expected 'latest' version omitted, got %q", queries[1].Version)
	}
	if queries[0].Package.Ecosystem != "npm" {
		t.Errorf("expected npm ecosystem label, got %q", queries[0].Package.Ecosystem)
	}
}
