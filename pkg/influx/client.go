package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Lux-EE464H/Lux/pkg/config"
)

const (
	connectTimeout = 10 * time.Second
	batchSize      = 50
	flushInterval  = 10 * time.Second
)

// ErrDisabled is returned by Connect when InfluxDB telemetry is turned off
var ErrDisabled = errors.New("influxdb disabled")

// Client is a non-blocking, batched writer for cycle telemetry
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Connect creates the client and verifies the server answers a ping
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if !cfg.InfluxEnabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(
		cfg.InfluxURL,
		cfg.InfluxToken,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(uint(flushInterval.Milliseconds())),
	)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping influxdb: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb at %s is not healthy", cfg.InfluxURL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket),
		logger:   logger,
	}
	go c.logWriteErrors(c.writeAPI.Errors())

	logger.Info("Connected to InfluxDB", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	return c, nil
}

func (c *Client) logWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.logger.Warn("InfluxDB write failed", "error", err)
	}
}

// WritePoint queues a point. It is a no-op after Close.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// Ping reports whether the server is reachable
func (c *Client) Ping(ctx context.Context) error {
	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb not healthy")
	}
	return nil
}

// Close flushes pending points and closes the client
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	c.logger.Info("Closing InfluxDB client")
	c.writeAPI.Flush()
	c.client.Close()
}
