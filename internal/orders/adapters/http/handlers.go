package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/bookstore/internal/orders/app"
	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/ports"
)

const (
	ownerHeader       = "X-User-ID"
	idempotencyHeader = "Idempotency-Key"
	signatureHeader   = "X-Sign"
	callbackPath      = "/v1/payments/callback"

	maxOrderBodyBytes    = 1 << 20
	maxCallbackBodyBytes = 64 << 10
)

// Handler exposes HTTP endpoints for orders, books and payment callbacks.
type Handler struct {
	service             *app.Service
	logger              *slog.Logger
	webhookURL          string
	trustForwardedProto bool
}

type Option func(*Handler)

// WithWebhookURL fixes the callback URL sent to the payment provider. Without
// it the URL is derived from the incoming create-order request.
func WithWebhookURL(url string) Option {
	return func(h *Handler) {
		h.webhookURL = url
	}
}

// WithForwardedProto makes derived webhook URLs honour an http or https
// X-Forwarded-Proto header. Use it only behind a proxy that overwrites it.
func WithForwardedProto() Option {
	return func(h *Handler) {
		h.trustForwardedProto = true
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(service *app.Service, opts ...Option) *Handler {
	h := &Handler{service: service, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register binds the handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/orders", h.createOrder)
	mux.HandleFunc("GET /v1/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /v1/books/{id}", h.getBook)
	mux.HandleFunc("POST "+callbackPath, h.paymentCallback)
}

type createOrderRequest struct {
	Books []domain.RequestedItem `json:"books"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
	PayURL  string `json:"pay_url"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxOrderBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	var payload createOrderRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// Keys are scoped to the owner so two clients cannot replay each other's orders.
	var idemKey, fingerprint string
	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
		idemKey = owner + ":" + key
		fingerprint = requestFingerprint(owner, payload)

		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		if stored != nil {
			if stored.Fingerprint != fingerprint {
				writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	result, err := h.service.CreateOrder(ctx, app.CreateOrderInput{
		OwnerID:    owner,
		Books:      payload.Books,
		WebhookURL: h.callbackURL(r),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	body, err := json.Marshal(createOrderResponse{OrderID: result.Order.ID, PayURL: result.PayURL})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode:  http.StatusCreated,
			Body:        body,
			OrderID:     result.Order.ID,
			Fingerprint: fingerprint,
		}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.ErrorContext(ctx, "failed to store idempotent response",
				"order_id", result.Order.ID,
				"error", err,
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/orders/"+result.Order.ID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.Info())
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "book id must be an integer")
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// paymentCallback passes the body through untouched: the signature covers
// the exact bytes the provider sent.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	_, err = h.service.HandlePaymentCallback(r.Context(), r.Header.Get(signatureHeader), body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, domain.ErrSignatureMismatch):
		writeError(w, http.StatusBadRequest, "signature mismatch")
	case errors.Is(err, domain.ErrMalformedCallback):
		writeError(w, http.StatusBadRequest, "invalid payload")
	case errors.Is(err, domain.ErrInvoiceMismatch):
		writeError(w, http.StatusBadRequest, "invoiceId mismatch")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrGateway):
		// The provider retries non-2xx deliveries, which is what we want
		// while its signing key cannot be fetched.
		writeError(w, http.StatusServiceUnavailable, "signing key unavailable")
	default:
		h.internalError(w, r, err)
	}
}

// callbackURL is the configured webhook URL or one built from the request host.
func (h *Handler) callbackURL(r *http.Request) string {
	if h.webhookURL != "" {
		return h.webhookURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if h.trustForwardedProto {
		switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
		case "http", "https":
			scheme = proto
		}
	}
	return scheme + "://" + r.Host + callbackPath
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrClientInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBusinessRule):
		writeError(w, http.StatusNotAcceptable, err.Error())
	case errors.Is(err, domain.ErrGateway):
		h.logger.ErrorContext(r.Context(), "payment gateway unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// requestFingerprint identifies a create-order request independently of JSON formatting.
func requestFingerprint(owner string, payload createOrderRequest) string {
	canonical, _ := json.Marshal(struct {
		Owner string                 `json:"owner"`
		Books []domain.RequestedItem `json:"books"`
	}{owner, payload.Books})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
