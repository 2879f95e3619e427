package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/advisory"
	"github.com/NFrozeCLAWDBOT/bastion/internal/graph"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"github.com/NFrozeCLAWDBOT/bastion/internal/registry/npmreg"
	"github.com/NFrozeCLAWDBOT/bastion/internal/risk"
)

type memCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMemCache() *memCache { return &memCache{items: make(map[string]interface{})} }

func (c *memCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *memCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func newStubUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/left-pad/1.3.0", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"left-pad","version":"1.3.0","license":"MIT","dependencies":{}}`))
	})
	mux.HandleFunc("/left-pad", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time":{"created":"2014-01-01T00:00:00.000Z","modified":"2020-01-01T00:00:00.000Z"}}`))
	})
	mux.HandleFunc("/downloads/left-pad", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"downloads":100000}`))
	})
	mux.HandleFunc("/querybatch", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"vulns":[]}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities":[]}`))
	})
	return httptest.NewServer(mux)
}

func newStubbedOrchestrator(srv *httptest.Server, cache ResultCache) *Orchestrator {
	adapters := map[graph.Ecosystem]registry.Adapter{
		graph.NPM: npmreg.New(nil, srv.Client(), srv.URL, srv.URL+"/downloads"),
	}
	return &Orchestrator{
		cfg:      DefaultConfig(),
		cache:    cache,
		resolver: graph.NewResolver(adapters, nil),
		osv:      advisory.NewOSVClient(nil, srv.Client(), srv.URL),
		kev:      advisory.NewKEVClient(nil, srv.Client(), srv.URL+"/kev.json"),
		scorer:   risk.NewScorer(nil),
	}
}

func TestAnalyseNPMMinimal(t *testing.T) {
	srv := newStubUpstream(t)
	defer srv.Close()

	o := newStubbedOrchestrator(srv, newMemCache())

	resp, err := o.Analyse(context.Background(), AnalyseRequest{
		Manifest:  `{"dependencies":{"left-pad":"1.3.0"}}`,
		Ecosystem: "npm",
	})
	if err != nil {
		t.Fatalf("Analyse() error = %v", err)
	}
	if resp.TotalDependencies != 1 {
		t.Fatalf("expected 1 dependency, got %d (nodes=%+v)", resp.TotalDependencies, resp.Nodes)
	}
	if !resp.Nodes[0].IsDirect || resp.Nodes[0].Depth != 0 {
		t.Errorf("expected a direct depth-0 node, got %+v", resp.Nodes[0])
	}
}

func TestAnalyseRejectsEmptyManifest(t *testing.T) {
	o := New(DefaultConfig(), newMemCache(), nil, http.DefaultClient)
	_, err := o.Analyse(context.Background(), AnalyseRequest{Manifest: "", Ecosystem: "npm"})
	if _, ok := err.(*ClientError); !ok {
		t.Fatalf("expected a ClientError, got %v", err)
	}
}

func TestAnalyseRejectsUnknownEcosystem(t *testing.T) {
	o := New(DefaultConfig(), newMemCache(), nil, http.DefaultClient)
	_, err := o.Analyse(context.Background(), AnalyseRequest{Manifest: "{}", Ecosystem: "nuget"})
	if _, ok := err.(*ClientError); !ok {
		t.Fatalf("expected a ClientError, got %v", err)
	}
}

func TestAnalyseCacheIdempotence(t *testing.T) {
	srv := newStubUpstream(t)
	defer srv.Close()

	cache := newMemCache()
	o := newStubbedOrchestrator(srv, cache)

	req := AnalyseRequest{Manifest: `{"dependencies":{"left-pad":"1.3.0"}}`, Ecosystem: "npm"}
	first, err := o.Analyse(context.Background(), req)
	if err != nil {
		t.Fatalf("first Analyse() error = %v", err)
	}
	second, err := o.Analyse(context.Background(), req)
	if err != nil {
		t.Fatalf("second Analyse() error = %v", err)
	}
	if first != second {
		t.Error("expected the second call to be served from cache (same pointer)")
	}
}
