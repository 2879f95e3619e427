package cargoreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/crates/serde", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"crate":{"created_at":"2014-11-24T00:00:00+00:00","updated_at":"2023-08-01T00:00:00+00:00","newest_version":"1.0.188","recent_downloads":12345}}`))
	})
	mux.HandleFunc("/crates/serde/1.0.188/dependencies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dependencies":[{"crate_id":"serde_derive","req":"^1.0","kind":"normal"},{"crate_id":"criterion","req":"^0.5","kind":"dev"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	client := New(logger, srv.Client(), srv.URL)

	deps, meta, err := client.Fetch(context.Background(), "serde", "")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("expected 1 normal dep (dev skipped), got %+v", deps)
	}
	if deps[0].Name != "serde_derive" || deps[0].Version != "1.0" {
		t.Errorf("dep 0 = %+v", deps[0])
	}
	if meta.FirstPublished != "2014-11-24" || meta.LastPublished != "2023-08-01" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.WeeklyDownloads != 12345 {
		t.Errorf("downloads = %d", meta.WeeklyDownloads)
	}
}
