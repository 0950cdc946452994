package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/mse-history/internal/version"
)

const tracerName = "github.com/rickgao/mse-history/internal/api"

// Client fetches issuer history and listings over plain HTTP.
// It holds no per-issuer state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	tracer     trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new client for the site rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    slog.Default(),
		userAgent: version.UserAgent(),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied so later
// options never modify the caller's value. Nil is ignored.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.httpClient = &cp
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}
