package locations

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

// Redis keeps positions in a GEO set plus a per-driver metadata hash, the
// same layout the downstream consumer mirrors into. Useful when other
// services need GEOSEARCH over live drivers.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Upsert(ctx context.Context, driverID string, lat, lng float64, at time.Time) (models.DriverPosition, error) {
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      driverID,
		Latitude:  lat,
		Longitude: lng,
	}).Err(); err != nil {
		return models.DriverPosition{}, err
	}
	if err := r.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"updated": at.Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return models.DriverPosition{}, err
	}
	return models.DriverPosition{
		DriverID:  driverID,
		Location:  models.Coordinates{Latitude: lat, Longitude: lng},
		UpdatedAt: at,
	}, nil
}

func (r *Redis) Get(ctx context.Context, driverID string) (models.DriverPosition, error) {
	res, err := r.client.GeoPos(ctx, r.key, driverID).Result()
	if err != nil {
		return models.DriverPosition{}, err
	}
	if len(res) == 0 || res[0] == nil {
		return models.DriverPosition{}, store.ErrNotFound
	}
	pos := models.DriverPosition{
		DriverID: driverID,
		Location: models.Coordinates{Latitude: res[0].Latitude, Longitude: res[0].Longitude},
	}
	if v, err := r.client.HGet(ctx, metaKey(driverID), "updated").Result(); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			pos.UpdatedAt = ts
		}
	}
	return pos, nil
}

func metaKey(id string) string { return "driver:meta:" + id }
