package influxdb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/sensorbridge/internal/infrastructure/config"
)

const defaultPingTimeout = 5 * time.Second

// Client wraps the InfluxDB v2 client for probing and querying the
// bucket the bridge writes to.
type Client struct {
	client influxdb2.Client
	query  api.QueryAPI
	bucket string
}

// New creates a client. It does not contact the server; use Ping for that.
// httpClient is shared with the forwarder when non-nil.
func New(cfg config.UpstreamConfig, httpClient *http.Client) *Client {
	opts := influxdb2.DefaultOptions()
	if httpClient != nil {
		opts.SetHTTPClient(httpClient)
	} else if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(cfg.Timeout)) // #nosec G115 -- validated positive
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Client{
		client: client,
		query:  client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
	}
}

// Ping checks that the server is reachable and ready.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !ok {
		return ErrUnhealthy
	}
	return nil
}

// HealthCheck is Ping under the name the ops API expects.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx)
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.client.Close()
}
