package store

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"github.com/example/delivery-tracking/internal/models"
)

// Open dials postgres and verifies the connection with a ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Postgres is the production Directory, reading the tables owned by the
// account/order CRUD services.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	var restaurantID sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, role, name, email, restaurant_id FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Role, &a.Name, &a.Email, &restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.RestaurantID = restaurantID.String
	return &a, nil
}

func (p *Postgres) RestaurantByOwner(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	var r models.Restaurant
	err := p.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name FROM restaurants WHERE owner_id = $1`, ownerID,
	).Scan(&r.ID, &r.OwnerID, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Postgres) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	var driverID sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, customer_id, restaurant_id, driver_id, status, delivery_lat, delivery_lng, total, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.RestaurantID, &driverID, &o.Status,
		&o.DeliveryLocation.Latitude, &o.DeliveryLocation.Longitude,
		&o.Total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.DriverID = driverID.String
	return &o, nil
}
