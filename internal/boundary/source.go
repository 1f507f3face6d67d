// Package boundary loads and caches neighborhood boundary geometry from the
// external geography source. The fetch is one-shot and best effort: an empty
// collection is a valid response, and a failed load degrades to an empty
// catalog that disables spatial auto-selection instead of erroring.
package boundary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/geo"
)

// Source is a one-shot provider of neighborhood boundaries.
type Source interface {
	Fetch(ctx context.Context) ([]geo.Boundary, error)
}

// HTTPSource fetches a GeoJSON FeatureCollection of boundaries.
type HTTPSource struct {
	log    zerolog.Logger
	url    string
	client *http.Client
}

func NewHTTPSource(log zerolog.Logger, url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSource{log: log, url: url, client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]geo.Boundary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build boundary request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch boundaries: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read boundary body: %w", err)
	}

	return decodeCollection(s.log, raw)
}

// FileSource reads boundaries from a local GeoJSON file, for development
// and tests.
type FileSource struct {
	log  zerolog.Logger
	path string
}

func NewFileSource(log zerolog.Logger, path string) *FileSource {
	return &FileSource{log: log, path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]geo.Boundary, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read boundary file: %w", err)
	}
	return decodeCollection(s.log, raw)
}

// decodeCollection maps GeoJSON features onto boundaries. Features without
// an id, a name, or usable area geometry are skipped and logged; they are a
// data-quality condition, not an error.
func decodeCollection(log zerolog.Logger, raw []byte) ([]geo.Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode boundary collection: %w", err)
	}

	out := make([]geo.Boundary, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		id := featureID(f)
		name, _ := f.Properties["name"].(string)
		if id == "" || f.Geometry == nil || !geo.ValidArea(f.Geometry) {
			skipped++
			continue
		}
		out = append(out, geo.NewBoundary(id, name, f.Geometry))
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("boundary features skipped for missing id or bad geometry")
	}
	return out, nil
}

func featureID(f *geojson.Feature) string {
	if s, ok := f.ID.(string); ok && s != "" {
		return s
	}
	if s, ok := f.Properties["id"].(string); ok && s != "" {
		return s
	}
	if s, ok := f.Properties["geoid"].(string); ok && s != "" {
		return s
	}
	return ""
}
