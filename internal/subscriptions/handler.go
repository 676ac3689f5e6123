package subscriptions

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/satsignal/satsignal/internal/domain"
	"github.com/satsignal/satsignal/internal/invoices"
	"github.com/satsignal/satsignal/internal/pkg/ctxlog"
	"github.com/satsignal/satsignal/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: invoices.ErrInvalidPaymentRequest, Status: http.StatusBadRequest, Message: "invalid payment request"},
}

// StatusPayload is the wire shape delivered to subscribers.
type StatusPayload struct {
	Errors []domain.SubscriptionError `json:"errors"`
	Status string                     `json:"status,omitempty"`
}

// ResolvePayload projects a delivered event into the wire payload. A nil
// source means the transport handed over nothing, which is a client usage
// error (wrong endpoint), not an invoice condition.
func ResolvePayload(source *domain.StatusEvent) (*StatusPayload, error) {
	if source == nil {
		return nil, ErrMissingPayload
	}
	if source.Kind == domain.EventKindErrors {
		return &StatusPayload{Errors: source.Errors}, nil
	}
	return &StatusPayload{
		Errors: []domain.SubscriptionError{},
		Status: string(source.Status),
	}, nil
}

// Handler exposes payment status subscriptions over server-sent events.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a subscriptions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers subscription routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/invoices/status-stream", h.StreamPaymentStatus)
}

// StreamPaymentStatus handles GET /invoices/status-stream. It subscribes to
// the invoice identified by the payment_request query parameter and streams
// status payloads as server-sent events until the first terminal event has
// been written or the client disconnects.
func (h *Handler) StreamPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentRequest := r.URL.Query().Get("payment_request")
	if err := h.validator.Var(paymentRequest, "required"); err != nil {
		httputil.Error(w, http.StatusBadRequest, "payment_request is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream, err := h.service.Subscribe(r.Context(), paymentRequest)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := ctxlog.FromContext(r.Context())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-stream.Events():
			if !ok {
				return
			}
			payload, err := ResolvePayload(&event)
			if err != nil {
				logger.Error("resolve subscription payload", "error", err)
				return
			}
			if err := writeEvent(w, flusher, payload); err != nil {
				logger.Debug("subscriber write failed", "error", err)
				return
			}
			// First terminal event ends the stream; anything the broker
			// delivers afterwards (a late EXPIRED timer, a duplicate) is
			// meaningless and must not reach the client.
			if event.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, flusher http.Flusher, payload *StatusPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
