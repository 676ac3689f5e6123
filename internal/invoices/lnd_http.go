package invoices

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultNodeTimeout = 30 * time.Second

// LNDConfig holds configuration for the LND REST client.
type LNDConfig struct {
	// Address is the host:port of LND's REST proxy.
	Address string
	// MacaroonHex is the hex-encoded macaroon sent with every request.
	MacaroonHex string
	// TLSSkipVerify disables certificate verification, for nodes using
	// self-signed certificates.
	TLSSkipVerify bool
	// Timeout bounds each request round trip.
	Timeout time.Duration
}

// LNDHTTPClient implements NodeClient against LND's REST API.
type LNDHTTPClient struct {
	baseURL    string
	macaroon   string
	httpClient *http.Client
}

// LND REST response structures. Numeric fields arrive as decimal strings.
type lndPayReqResponse struct {
	PaymentHash string `json:"payment_hash"`
	NumSatoshis string `json:"num_satoshis"`
	Timestamp   string `json:"timestamp"`
	Expiry      string `json:"expiry"`
	Description string `json:"description"`
}

type lndInvoiceResponse struct {
	Settled bool   `json:"settled"`
	State   string `json:"state"`
}

type lndErrorResponse struct {
	Message string `json:"message"`
}

// NewLNDHTTPClient creates a client for LND's REST API and verifies
// connectivity before returning.
func NewLNDHTTPClient(cfg LNDConfig) (*LNDHTTPClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("lnd address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNodeTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &LNDHTTPClient{
		baseURL:  "https://" + cfg.Address,
		macaroon: cfg.MacaroonHex,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to lnd: %w", err)
	}

	return c, nil
}

// newLNDHTTPClientForBase is used by tests to point the client at a test
// server without the connectivity check.
func newLNDHTTPClientForBase(baseURL, macaroon string) *LNDHTTPClient {
	return &LNDHTTPClient{
		baseURL:    baseURL,
		macaroon:   macaroon,
		httpClient: &http.Client{Timeout: defaultNodeTimeout},
	}
}

// DecodePaymentRequest decodes a BOLT11 payment request at the node.
func (c *LNDHTTPClient) DecodePaymentRequest(ctx context.Context, paymentRequest string) (*PaymentRequestDetails, error) {
	var decoded lndPayReqResponse
	status, err := c.get(ctx, "/v1/payreq/"+url.PathEscape(paymentRequest), &decoded)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		// LND rejects undecodable requests with a 4xx/5xx plus a message
		// body; either way the request itself is the problem.
		return nil, fmt.Errorf("%w: node rejected request (status %d)", ErrInvalidPaymentRequest, status)
	}

	timestamp, err := parseUnixSeconds(decoded.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse payreq timestamp: %w", err)
	}
	expiry, err := strconv.ParseInt(decoded.Expiry, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse payreq expiry: %w", err)
	}
	amount, err := strconv.ParseInt(decoded.NumSatoshis, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse payreq amount: %w", err)
	}

	return &PaymentRequestDetails{
		PaymentHash: decoded.PaymentHash,
		ExpiresAt:   timestamp.Add(time.Duration(expiry) * time.Second),
		AmountSats:  amount,
		Description: decoded.Description,
	}, nil
}

// LookupInvoice fetches the node's current state of the invoice.
func (c *LNDHTTPClient) LookupInvoice(ctx context.Context, paymentHash string) (*Invoice, error) {
	var invoice lndInvoiceResponse
	status, err := c.get(ctx, "/v1/invoice/"+url.PathEscape(paymentHash), &invoice)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, paymentHash)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("lookup invoice: node returned status %d", status)
	}

	return &Invoice{
		PaymentHash: paymentHash,
		Settled:     invoice.Settled,
		State:       invoice.State,
	}, nil
}

// Ping checks node reachability.
func (c *LNDHTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/getinfo", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: getinfo returned status %d: %s", ErrNodeUnavailable, resp.StatusCode, string(body))
	}
	return nil
}

// Close is a no-op; the client holds no persistent connections beyond the
// transport's idle pool.
func (c *LNDHTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// get performs a GET and decodes the response body into out when the status
// indicates there is one. The status code is returned for the caller to
// interpret; transport failures map to ErrNodeUnavailable.
func (c *LNDHTTPClient) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *LNDHTTPClient) setHeaders(req *http.Request) {
	if c.macaroon != "" {
		req.Header.Set("Grpc-Metadata-macaroon", c.macaroon)
	}
}

func parseUnixSeconds(s string) (time.Time, error) {
	seconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0), nil
}
