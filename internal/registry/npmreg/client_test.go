package npmreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/left-pad/1.3.0", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dependencies": {"util-deprecate": "^1.0.0"}, "license": "MIT"}`))
	})
	mux.HandleFunc("/left-pad", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/1.3.0") {
			return
		}
		w.Write([]byte(`{"time": {"created": "2014-11-04T00:00:00.000Z", "modified": "2015-10-07T00:00:00.000Z"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"downloads": 5000000}`))
	}))
	defer dlSrv.Close()

	logger, _ := zap.NewDevelopment()
	client := New(logger, srv.Client(), srv.URL, dlSrv.URL)

	deps, meta, err := client.Fetch(context.Background(), "left-pad", "1.3.0")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "util-deprecate" || deps[0].Version != "1.0.0" {
		t.Errorf("deps = %+v", deps)
	}
	if meta.Licence != "MIT" {
		t.Errorf("licence = %q", meta.Licence)
	}
	if meta.FirstPublished != "2014-11-04T00:00:00.000Z" {
		t.Errorf("firstPublished = %q", meta.FirstPublished)
	}
	if meta.WeeklyDownloads != 5000000 {
		t.Errorf("weeklyDownloads = %d", meta.WeeklyDownloads)
	}
}

func TestFetch404FallsBackToLatest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pkg/9.9.9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/pkg/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dependencies": {}, "license": "ISC"}`))
	})
	mux.HandleFunc("/pkg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	client := New(logger, srv.Client(), srv.URL, srv.URL+"/downloads")

	_, meta, err := client.Fetch(context.Background(), "pkg", "9.9.9")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.Licence != "ISC" {
		t.Errorf("expected fallback to /latest, got licence %q", meta.Licence)
	}
}
