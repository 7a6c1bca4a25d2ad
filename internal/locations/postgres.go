package locations

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

// Postgres persists positions in the driver_positions table, one row per
// driver, overwritten in place on every update.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Upsert(ctx context.Context, driverID string, lat, lng float64, at time.Time) (models.DriverPosition, error) {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO driver_positions(driver_id, latitude, longitude, updated_at)
		 VALUES($1, $2, $3, $4)
		 ON CONFLICT (driver_id) DO UPDATE
		 SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = EXCLUDED.updated_at`,
		driverID, lat, lng, at)
	if err != nil {
		return models.DriverPosition{}, err
	}
	return models.DriverPosition{
		DriverID:  driverID,
		Location:  models.Coordinates{Latitude: lat, Longitude: lng},
		UpdatedAt: at,
	}, nil
}

func (p *Postgres) Get(ctx context.Context, driverID string) (models.DriverPosition, error) {
	var pos models.DriverPosition
	err := p.db.QueryRowContext(ctx,
		`SELECT driver_id, latitude, longitude, updated_at FROM driver_positions WHERE driver_id = $1`,
		driverID,
	).Scan(&pos.DriverID, &pos.Location.Latitude, &pos.Location.Longitude, &pos.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DriverPosition{}, store.ErrNotFound
	}
	if err != nil {
		return models.DriverPosition{}, err
	}
	return pos, nil
}
