// Package client talks to the event registration API: it fetches event
// schemas, submits registrations and persists in-progress form logs.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	j "github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-formflow/pkg/logging"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Defaults applied by New.
const (
	DefaultBaseURL  = "https://api.makemypass.com"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 5 * time.Minute

	tracerName = "github.com/goliatone/go-formflow/pkg/client"
)

// Span names for each remote call.
const (
	SpanFetchEvent = "formflow.client.fetch_event"
	SpanSubmit     = "formflow.client.submit"
	SpanUpdateLog  = "formflow.client.update_log"
)

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient swaps the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCacheTTL sets how long fetched events are reused. Zero disables the
// cache.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer replaces the global OTel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	cacheTTL time.Duration
	cache    *gocache.Cache
	logger   logging.Logger
	tracer   trace.Tracer
}

// New builds a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
		cacheTTL: DefaultCacheTTL,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.cacheTTL > 0 {
		c.cache = gocache.New(c.cacheTTL, 2*c.cacheTTL)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchEvent loads the public event info for slug.
func (c *Client) FetchEvent(ctx context.Context, slug string) (event model.Event, err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Event{}, fmt.Errorf("client: fetch event: %w", ErrNoEvent)
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(slug); ok {
			if ev, ok := cached.(model.Event); ok {
				return ev, nil
			}
		}
	}

	ctx, span := c.tracer.Start(ctx, SpanFetchEvent, trace.WithAttributes(attribute.String("formflow.event_slug", slug)))
	defer func() { endSpan(span, err) }()

	endpoint := c.baseURL + "/makemypass/public-form/" + url.PathEscape(slug) + "/info/"
	var env envelope[model.Event]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &env); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return model.Event{}, fmt.Errorf("client: fetch event %q: %w", slug, errors.Join(ErrNoEvent, err))
		}
		return model.Event{}, fmt.Errorf("client: fetch event %q: %w", slug, err)
	}
	if env.Response == nil {
		return model.Event{}, fmt.Errorf("client: fetch event %q: %w", slug, ErrNoEvent)
	}

	if c.cache != nil {
		c.cache.SetDefault(slug, *env.Response)
	}
	return *env.Response, nil
}

// Submit posts a registration.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (resp *SubmitResponse, err error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, errors.New("client: submit: event id is required")
	}
	ctx, span := c.tracer.Start(ctx, SpanSubmit, trace.WithAttributes(
		attribute.String("formflow.event_id", req.EventID),
		attribute.Bool("formflow.has_log_id", req.LogID != ""),
	))
	defer func() { endSpan(span, err) }()

	payload, err := SubmitPayload(req)
	if err != nil {
		return nil, fmt.Errorf("client: submit: encode payload: %w", err)
	}
	endpoint := c.baseURL + "/makemypass/public-form/" + url.PathEscape(req.EventID) + "/submit/"

	var env envelope[SubmitResponse]
	if err := c.do(ctx, http.MethodPost, endpoint, payload.Body, payload.ContentType, &env); err != nil {
		return nil, fmt.Errorf("client: submit: %w", err)
	}
	if env.Response == nil {
		return &SubmitResponse{}, nil
	}
	return env.Response, nil
}

// UpdateLog persists in-progress values. The returned LogID should be sent
// back on later calls.
func (c *Client) UpdateLog(ctx context.Context, req LogRequest) (resp *LogResponse, err error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, errors.New("client: update log: event id is required")
	}
	ctx, span := c.tracer.Start(ctx, SpanUpdateLog, trace.WithAttributes(
		attribute.String("formflow.event_id", req.EventID),
		attribute.Bool("formflow.has_log_id", req.LogID != ""),
	))
	defer func() { endSpan(span, err) }()

	payload, err := LogPayload(req)
	if err != nil {
		return nil, fmt.Errorf("client: update log: encode payload: %w", err)
	}
	endpoint := c.baseURL + "/makemypass/manage-event/" + url.PathEscape(req.EventID) + "/form-log/"

	var env envelope[LogResponse]
	if err := c.do(ctx, http.MethodPost, endpoint, payload.Body, payload.ContentType, &env); err != nil {
		return nil, fmt.Errorf("client: update log: %w", err)
	}
	if env.Response == nil {
		return &LogResponse{}, nil
	}
	return env.Response, nil
}

// InvalidateEvent drops a cached event.
func (c *Client) InvalidateEvent(slug string) {
	if c.cache != nil {
		c.cache.Delete(strings.TrimSpace(slug))
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, contentType string, out any) error {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("client: request", "method", method, "url", endpoint)
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var probe envelope[j.RawMessage]
	decodeErr := j.Unmarshal(data, &probe)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if decodeErr != nil {
			return &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return newAPIError(res.StatusCode, probe.Message)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if probe.HasError {
		status := probe.StatusCode
		if status == 0 {
			status = res.StatusCode
		}
		return newAPIError(status, probe.Message)
	}
	if out == nil {
		return nil
	}
	if err := j.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
