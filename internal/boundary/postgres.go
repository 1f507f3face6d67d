package boundary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/geo"
)

// PostgresSource loads boundaries from a neighborhood_boundaries table
// whose geometry column holds GeoJSON.
type PostgresSource struct {
	log  zerolog.Logger
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and verifies connectivity early.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPostgresSource(log zerolog.Logger, pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{log: log, pool: pool}
}

func (s *PostgresSource) Fetch(ctx context.Context) ([]geo.Boundary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, geometry FROM neighborhood_boundaries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query boundaries: %w", err)
	}
	defer rows.Close()

	var out []geo.Boundary
	skipped := 0
	for rows.Next() {
		var id, name string
		var rawGeom []byte
		if err := rows.Scan(&id, &name, &rawGeom); err != nil {
			return nil, fmt.Errorf("scan boundary row: %w", err)
		}

		g, err := geojson.UnmarshalGeometry(rawGeom)
		if err != nil || g == nil || !geo.ValidArea(g.Geometry()) {
			skipped++
			continue
		}
		out = append(out, geo.NewBoundary(id, name, g.Geometry()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boundary rows: %w", err)
	}

	if skipped > 0 {
		s.log.Warn().Int("skipped", skipped).Msg("boundary rows skipped for bad geometry")
	}
	return out, nil
}
