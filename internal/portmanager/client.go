package portmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/ArowuTest/random-module/internal/config"
	"github.com/ArowuTest/random-module/internal/logging"
)

const (
	defaultAttempts = 3
	defaultInterval = time.Second
	requestTimeout  = 5 * time.Second
)

// ErrNoPort is returned when the port manager never handed out a port.
var ErrNoPort = errors.New("portmanager: no port received")

// response is the port manager's reply envelope.
type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Client asks the port manager which port this service should listen on.
type Client struct {
	url        string
	httpClient *http.Client
	attempts   uint64
	interval   time.Duration
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the number of attempts and the pause between them.
func WithRetry(attempts uint64, interval time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.interval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client for
// http://{PortManagerIP}:{PortManagerPort}/{PortManagerEndpoint}/{ServiceName}.
func NewClient(cfg *config.AppConfig, opts ...Option) *Client {
	host := net.JoinHostPort(cfg.PortManagerIP, strconv.Itoa(cfg.PortManagerPort))
	c := &Client{
		url:        fmt.Sprintf("http://%s/%s/%s", host, cfg.PortManagerEndpoint, cfg.ServiceName),
		httpClient: &http.Client{Timeout: requestTimeout},
		attempts:   defaultAttempts,
		interval:   defaultInterval,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the address the client queries.
func (c *Client) URL() string {
	return c.url
}

// FetchPort requests a port, retrying every failure up to the configured
// number of attempts.
func (c *Client) FetchPort(ctx context.Context) (int, error) {
	var (
		port    int
		attempt int
	)
	op := func() error {
		attempt++
		c.log.Info("requesting port", slog.Int("attempt", attempt), slog.String("url", c.url))
		p, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		port = p
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.log.Warn("port request failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", next),
			logging.Err(err),
		)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.interval), c.attempts-1),
		ctx,
	)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		c.log.Error("all attempts to fetch port failed", slog.Int("attempts", attempt), logging.Err(err))
		return 0, fmt.Errorf("%w after %d attempts: %v", ErrNoPort, attempt, err)
	}
	c.log.Info("received port", slog.Int("port", port))
	return port, nil
}

func (c *Client) fetchOnce(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("response status: %s", resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if !body.Success {
		return 0, fmt.Errorf("port manager returned error: %s", string(body.Data))
	}

	port, err := strconv.ParseUint(string(body.Data), 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("no port found in response data: %s", string(body.Data))
	}
	return int(port), nil
}
