package invoices

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// MockNodeClient implements NodeClient in memory for tests and development.
type MockNodeClient struct {
	mu        sync.Mutex
	byRequest map[string]*mockInvoice
	byHash    map[string]*mockInvoice
	decodeErr error
	lookupErr error
}

type mockInvoice struct {
	paymentHash string
	expiresAt   time.Time
	settled     bool
}

// NewMockNodeClient creates an empty mock node.
func NewMockNodeClient() *MockNodeClient {
	return &MockNodeClient{
		byRequest: make(map[string]*mockInvoice),
		byHash:    make(map[string]*mockInvoice),
	}
}

// AddInvoice registers an invoice under the given payment request and
// returns its payment hash.
func (m *MockNodeClient) AddInvoice(paymentRequest string, expiresAt time.Time, settled bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := newPaymentHash()
	inv := &mockInvoice{paymentHash: hash, expiresAt: expiresAt, settled: settled}
	m.byRequest[paymentRequest] = inv
	m.byHash[hash] = inv
	return hash
}

// SettleInvoice marks the invoice with the given payment hash as paid.
func (m *MockNodeClient) SettleInvoice(paymentHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.byHash[paymentHash]; ok {
		inv.settled = true
	}
}

// FailDecode makes DecodePaymentRequest return err for every call.
func (m *MockNodeClient) FailDecode(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decodeErr = err
}

// FailLookup makes LookupInvoice return err for every call.
func (m *MockNodeClient) FailLookup(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupErr = err
}

func (m *MockNodeClient) DecodePaymentRequest(_ context.Context, paymentRequest string) (*PaymentRequestDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.decodeErr != nil {
		return nil, m.decodeErr
	}
	inv, ok := m.byRequest[paymentRequest]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment request", ErrInvalidPaymentRequest)
	}
	return &PaymentRequestDetails{
		PaymentHash: inv.paymentHash,
		ExpiresAt:   inv.expiresAt,
	}, nil
}

func (m *MockNodeClient) LookupInvoice(_ context.Context, paymentHash string) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	inv, ok := m.byHash[paymentHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, paymentHash)
	}
	state := "OPEN"
	if inv.settled {
		state = "SETTLED"
	}
	return &Invoice{PaymentHash: paymentHash, Settled: inv.settled, State: state}, nil
}

func (m *MockNodeClient) Ping(_ context.Context) error {
	return nil
}

func (m *MockNodeClient) Close() error {
	return nil
}

func newPaymentHash() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)
}
