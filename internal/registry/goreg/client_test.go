package goreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/github.com/foo/bar/@v/v1.2.3.mod", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("module github.com/foo/bar\n\ngo 1.20\n\nrequire (\n\tgithub.com/a/b v1.0.0\n\tgithub.com/c/d v2.0.0 // indirect\n)\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	client := New(logger, srv.Client(), srv.URL)

	deps, meta, err := client.Fetch(context.Background(), "github.com/foo/bar", "1.2.3")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 deps, got %+v", deps)
	}
	if deps[0].Name != "github.com/a/b" || deps[0].Version != "1.0.0" {
		t.Errorf("dep 0 = %+v", deps[0])
	}
	if meta.Licence != assumedGoModLicence {
		t.Errorf("licence = %q", meta.Licence)
	}
}
