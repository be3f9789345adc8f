package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client issues reads and writes against the device's REST service.
// Credentials are applied per request with HTTP basic auth; connections are
// pooled by the underlying http.Client and scoped to each request. All
// calls share one rate limiter so a misbehaving caller cannot hammer the
// board.
type Client struct {
	httpClient *http.Client
	username   string
	password   string
	limiter    *rate.Limiter
}

// NewClient creates a device client with the given credentials, per-call
// timeout and request rate limit.
func NewClient(username, password string, timeout time.Duration, rateLimitRPS float64) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if rateLimitRPS == 0 {
		rateLimitRPS = 10.0
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		username:   username,
		password:   password,
		limiter:    rate.NewLimiter(rate.Limit(rateLimitRPS), int(rateLimitRPS)),
	}
}

// Get reports whether the light behind url is on: true iff the response
// body is exactly "1". Any transport failure also reads as false, so a
// read failure is indistinguishable from a confirmed-off light. Callers
// that re-send commands based on Get must tolerate that conflation.
func (c *Client) Get(ctx context.Context, url string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn().Str("url", url).Err(err).Msg("Light read request build failed")
		return false
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Str("url", url).Err(err).Msg("Light read failed, treating as off")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("url", url).Int("status", resp.StatusCode).Msg("Light read rejected, treating as off")
		return false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}
	return string(body) == "1"
}

// Post sets the light behind url by POSTing {url}/{0|1}. Any HTTP success
// status counts as success; the response body is ignored.
func (c *Client) Post(ctx context.Context, url string, on bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	value := "0"
	if on {
		value = "1"
	}
	target := url + "/" + value

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
