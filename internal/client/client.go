// Package client implements the remote vending service over HTTP. It is the
// only place that knows the wire format; the state components consume it
// through their own narrow interfaces.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/xenking/vendo-client/internal/domain/product"
	"github.com/xenking/vendo-client/internal/domain/user"
	"github.com/xenking/vendo-client/pkg/httptransport"
)

// Config holds the knobs for constructing a Client.
type Config struct {
	// BaseURL is the root of the vending API, without a trailing slash.
	BaseURL string
	// Timeout bounds every request end to end. Zero means 10s.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the limiter burst size when throttling is enabled.
	Burst int

	// TracerProvider and MeterProvider instrument the underlying transport.
	// Nil values fall back to the OpenTelemetry globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client talks to the vending service. The session cookie issued at login is
// held in an in-memory jar, so one Client represents one user session.
type Client struct {
	base string
	http *http.Client
}

// New constructs a Client. The returned client carries its own cookie jar
// and an instrumented transport.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		base: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: httptransport.Chain(
				otelhttp.NewTransport(http.DefaultTransport, opts...),
				httptransport.RateLimit(limiter),
				httptransport.Logging(),
				httptransport.RequestID(),
			),
		},
	}, nil
}

// CurrentUser resolves the identity attached to the current session cookie.
func (c *Client) CurrentUser(ctx context.Context) (user.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return user.User{}, err
	}
	return decodeUser(jx.DecodeBytes(data))
}

// Register creates a new account and starts a session for it.
func (c *Client) Register(ctx context.Context, creds user.Credentials) (user.User, error) {
	data, err := c.do(ctx, http.MethodPost, "/user", encodeCredentials(creds))
	if err != nil {
		return user.User{}, err
	}
	return decodeUser(jx.DecodeBytes(data))
}

// Login starts a session for an existing account.
func (c *Client) Login(ctx context.Context, creds user.Credentials) (user.User, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", encodeCredentials(creds))
	if err != nil {
		return user.User{}, err
	}
	return decodeUser(jx.DecodeBytes(data))
}

// Logout terminates the current session on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

// Deposit adds one coin of the given denomination and returns the new
// balance as reported by the server.
func (c *Client) Deposit(ctx context.Context, denomination int64) (int64, error) {
	data, err := c.do(ctx, http.MethodPost, "/deposit", encodeDeposit(denomination))
	if err != nil {
		return 0, err
	}
	return decodeBalance(jx.DecodeBytes(data))
}

// ResetDeposit returns the whole balance as change and zeroes the deposit.
func (c *Client) ResetDeposit(ctx context.Context) ([]int64, error) {
	data, err := c.do(ctx, http.MethodPost, "/deposit/reset", nil)
	if err != nil {
		return nil, err
	}
	return decodeChange(jx.DecodeBytes(data))
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/product", nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(jx.DecodeBytes(data))
}

// CreateProduct registers a new product and returns the server's
// representation of it, including the assigned ID.
func (c *Client) CreateProduct(ctx context.Context, p product.Payload) (product.Product, error) {
	data, err := c.do(ctx, http.MethodPost, "/product", encodeProductPayload(p))
	if err != nil {
		return product.Product{}, err
	}
	return decodeProduct(jx.DecodeBytes(data))
}

// UpdateProduct replaces the fields of an existing product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, p product.Payload) (product.Product, error) {
	data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/product/%d", id), encodeProductPayload(p))
	if err != nil {
		return product.Product{}, err
	}
	return decodeProduct(jx.DecodeBytes(data))
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/product/%d", id), nil)
	return err
}

// Buy purchases amount units of a product and returns the receipt.
func (c *Client) Buy(ctx context.Context, id int64, amount int) (product.Receipt, error) {
	data, err := c.do(ctx, http.MethodPost, "/buy", encodeBuy(id, amount))
	if err != nil {
		return product.Receipt{}, err
	}
	return decodeReceipt(jx.DecodeBytes(data))
}

// do issues one request and returns the raw success body. Statuses of 400
// and above become an *APIError carrying the server's message; everything
// else that goes wrong is a transport failure. There are no retries: the
// caller decides whether an operation is worth repeating.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: read body", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: decodeMessage(data),
		}
	}
	return data, nil
}
