package subscriptions

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satsignal/satsignal/internal/domain"
)

func TestResolvePayload(t *testing.T) {
	tests := []struct {
		name       string
		source     *domain.StatusEvent
		wantErr    error
		wantStatus string
		wantErrors int
	}{
		{
			name:    "nil source is transport misuse",
			source:  nil,
			wantErr: ErrMissingPayload,
		},
		{
			name: "status event",
			source: &domain.StatusEvent{
				Kind:   domain.EventKindStatus,
				Status: domain.PaymentStatusPending,
			},
			wantStatus: "PENDING",
			wantErrors: 0,
		},
		{
			name: "errors event",
			source: &domain.StatusEvent{
				Kind:   domain.EventKindErrors,
				Errors: []domain.SubscriptionError{{Message: "boom"}},
			},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ResolvePayload(tt.source)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, payload.Status)
			assert.Len(t, payload.Errors, tt.wantErrors)
			assert.NotNil(t, payload.Errors, "errors must serialize as [], not null")
		})
	}
}

func TestResolvePayload_WireShape(t *testing.T) {
	payload, err := ResolvePayload(&domain.StatusEvent{
		Kind:   domain.EventKindStatus,
		Status: domain.PaymentStatusPaid,
	})
	require.NoError(t, err)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[],"status":"PAID"}`, string(data))
}

func newTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(f.service).RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func streamURL(server *httptest.Server, paymentRequest string) string {
	return server.URL + "/invoices/status-stream?payment_request=" + paymentRequest
}

// readDataLines collects SSE data payloads until the server ends the stream.
func readDataLines(t *testing.T, resp *http.Response) []string {
	t.Helper()

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			lines = append(lines, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestHandler_StreamPaymentStatus_Paid(t *testing.T) {
	f := newFixture()
	f.node.AddInvoice("lnbc1paidinvoice", time.Now().Add(time.Hour), true)
	server := newTestServer(t, f)

	resp, err := http.Get(streamURL(server, "lnbc1paidinvoice"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// PAID is terminal, so the handler closes the stream after one event.
	lines := readDataLines(t, resp)
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"errors":[],"status":"PAID"}`, lines[0])
}

func TestHandler_StreamPaymentStatus_PendingThenExpired(t *testing.T) {
	f := newFixture()
	f.node.AddInvoice("lnbc1pendinginvoice", time.Now().Add(150*time.Millisecond), false)
	server := newTestServer(t, f)

	resp, err := http.Get(streamURL(server, "lnbc1pendinginvoice"))
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := readDataLines(t, resp)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"errors":[],"status":"PENDING"}`, lines[0])
	assert.JSONEq(t, `{"errors":[],"status":"EXPIRED"}`, lines[1])
}

func TestHandler_StreamPaymentStatus_ResolutionError(t *testing.T) {
	f := newFixture()
	server := newTestServer(t, f)

	resp, err := http.Get(streamURL(server, "lnbc1unknowninvoice"))
	require.NoError(t, err)
	defer resp.Body.Close()

	// A well-formed request that fails resolution still yields a 200
	// stream carrying a single errors event.
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	lines := readDataLines(t, resp)
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"errors":[{"message":"invalid payment request"}]}`, lines[0])
}

func TestHandler_StreamPaymentStatus_MissingParameter(t *testing.T) {
	f := newFixture()
	server := newTestServer(t, f)

	resp, err := http.Get(server.URL + "/invoices/status-stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_StreamPaymentStatus_MalformedRequest(t *testing.T) {
	f := newFixture()
	server := newTestServer(t, f)

	resp, err := http.Get(streamURL(server, "garbage"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid payment request", body.Error.Message)
}
