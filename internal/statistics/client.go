package statistics

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/haven-home/haven-core/internal/infrastructure/config"
)

const defaultConnectTimeout = 10 * time.Second

// Client answers statistics queries against InfluxDB v2.
//
// Thread Safety: all methods are safe for concurrent use; the underlying
// query API is stateless per call.
type Client struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	bucket   string
}

// Connect creates the InfluxDB client and verifies connectivity with a ping.
//
// Returns ErrDisabled when statistics are turned off in config; callers
// treat that as "run without statistics", not as a startup failure.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &Client{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
	}, nil
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() {
	c.client.Close()
}

// Collect runs the aggregation described by q and returns the resulting
// series in time order.
func (c *Client) Collect(ctx context.Context, q Query) ([]Point, error) {
	flux, err := q.flux(c.bucket)
	if err != nil {
		return nil, err
	}

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var points []Point
	for result.Next() {
		rec := result.Record()
		v, ok := rec.Value().(float64)
		if !ok {
			// aggregateWindow can emit empty windows with nil values.
			continue
		}
		points = append(points, Point{Time: rec.Time(), Value: v})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return points, nil
}
