// Package monobank talks to the monobank acquiring API: it creates hosted
// invoices for orders and authenticates the webhooks the provider sends back.
package monobank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	invoiceCreatePath = "/api/merchant/invoice/create"
	publicKeyPath     = "/api/merchant/pubkey"
	tokenHeader       = "X-Token"
)

// Config holds the connection settings for the provider API.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a ports.PaymentGateway backed by the monobank HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackOff overrides the retry schedule used between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type merchantPaymInfo struct {
	Reference   string              `json:"reference"`
	BasketOrder []domain.BasketItem `json:"basketOrder"`
}

type createInvoiceRequest struct {
	Amount           int64            `json:"amount"`
	MerchantPaymInfo merchantPaymInfo `json:"merchantPaymInfo"`
	WebHookURL       string           `json:"webHookUrl"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

type publicKeyResponse struct {
	Key string `json:"key"`
}

// CreateInvoice asks the provider for a hosted payment page for the order.
func (c *Client) CreateInvoice(ctx context.Context, req ports.InvoiceRequest) (ports.Invoice, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentGateway.CreateInvoice")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", req.Reference),
		attribute.Int64("invoice.amount", req.Amount),
	)

	body := createInvoiceRequest{
		Amount: req.Amount,
		MerchantPaymInfo: merchantPaymInfo{
			Reference:   req.Reference,
			BasketOrder: req.Basket,
		},
		WebHookURL: req.WebhookURL,
	}

	var resp createInvoiceResponse
	if err := c.call(ctx, "create_invoice", http.MethodPost, invoiceCreatePath, body, &resp); err != nil {
		telemetry.RecordSpanError(span, err)
		return ports.Invoice{}, err
	}

	if resp.InvoiceID == "" || resp.PageURL == "" {
		err := domain.GatewayError("create invoice", errors.New("response is missing invoiceId or pageUrl"))
		telemetry.RecordSpanError(span, err)
		return ports.Invoice{}, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("invoice.id", resp.InvoiceID))
	telemetry.SetSpanSuccess(span)

	return ports.Invoice{ID: resp.InvoiceID, PayURL: resp.PageURL}, nil
}

// PublicKey returns the provider's current webhook signing key as base64-encoded PEM.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentGateway.PublicKey")
	defer span.End()

	var resp publicKeyResponse
	if err := c.call(ctx, "public_key", http.MethodGet, publicKeyPath, nil, &resp); err != nil {
		telemetry.RecordSpanError(span, err)
		return "", err
	}

	if resp.Key == "" {
		err := domain.GatewayError("public key", errors.New("response is missing key"))
		telemetry.RecordSpanError(span, err)
		return "", err
	}

	telemetry.SetSpanSuccess(span)
	return resp.Key, nil
}

// call performs one logical request, retrying transport failures and 5xx
// responses up to MaxRetries times. Every attempt is bounded by Timeout.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) error {
	start := time.Now()
	var success bool
	defer func() {
		c.metrics.RecordRequest(ctx, op, time.Since(start).Seconds(), success)
	}()

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return domain.GatewayError(op, fmt.Errorf("encode request: %w", err))
		}
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.do(ctx, method, path, payload, out)
		if err != nil && !isPermanent(err) {
			c.logger.WarnContext(ctx, "payment gateway request failed",
				"operation", op,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.MaxRetries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return domain.GatewayError(op, err)
	}

	success = true
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set(tokenHeader, c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func isPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}
