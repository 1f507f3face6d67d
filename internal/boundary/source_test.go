package boundary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const boundariesJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "bk-greenpoint",
      "properties": {"name": "Greenpoint"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"id": "qn-astoria", "name": "Astoria"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[20,20],[30,20],[30,30],[20,30],[20,20]]]]}
    },
    {
      "type": "Feature",
      "properties": {"name": "no id, skipped"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    },
    {
      "type": "Feature",
      "id": "bad-geom",
      "properties": {"name": "degenerate, skipped"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,1],[0,0],[0,0]]]}
    }
  ]
}`

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(boundariesJSON))
	}))
	defer srv.Close()

	src := NewHTTPSource(zerolog.Nop(), srv.URL, srv.Client())
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 usable boundaries, got %d", len(got))
	}
	if got[0].ID != "bk-greenpoint" || got[0].Name != "Greenpoint" {
		t.Fatalf("unexpected first boundary: %+v", got[0])
	}
	if got[1].ID != "qn-astoria" {
		t.Fatalf("expected property-id fallback, got %+v", got[1])
	}
	if got[0].Bound.Max[0] != 10 {
		t.Fatalf("expected derived bound, got %v", got[0].Bound)
	}
}

func TestHTTPSourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(zerolog.Nop(), srv.URL, srv.Client())
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatalf("expected an error on non-200 status")
	}
}

func TestFileSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundaries.geojson")
	if err := os.WriteFile(path, []byte(boundariesJSON), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	src := NewFileSource(zerolog.Nop(), path)
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 boundaries, got %d", len(got))
	}
}

func TestCatalogLoadAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundaries.geojson")
	if err := os.WriteFile(path, []byte(boundariesJSON), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	c := NewCatalog()
	if c.Loaded() {
		t.Fatalf("fresh catalog must not report loaded")
	}

	if err := c.Load(context.Background(), NewFileSource(zerolog.Nop(), path)); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !c.Loaded() || c.Len() != 2 {
		t.Fatalf("expected 2 loaded boundaries, got %d", c.Len())
	}

	resolved := c.Resolve([]string{"bk-greenpoint", "nope", "qn-astoria"})
	if len(resolved) != 2 {
		t.Fatalf("expected unknown ids dropped, got %d", len(resolved))
	}

	if _, ok := c.Get("bk-greenpoint"); !ok {
		t.Fatalf("expected Get to find a loaded boundary")
	}
}

func TestCatalogFailedLoadStaysEmpty(t *testing.T) {
	c := NewCatalog()
	src := NewFileSource(zerolog.Nop(), filepath.Join(t.TempDir(), "missing.geojson"))

	if err := c.Load(context.Background(), src); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if c.Loaded() || c.Len() != 0 {
		t.Fatalf("failed load must leave the catalog empty")
	}
}
