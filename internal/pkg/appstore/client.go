package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"
)

// verifyReceipt status codes
const (
	StatusOK             = 0
	StatusSandboxReceipt = 21007
	StatusServerBusy     = 21005
)

var (
	// ErrInvalidReceipt is returned when Apple does not accept the receipt
	ErrInvalidReceipt = errors.New("appstore: receipt rejected")
	// ErrBundleMismatch is returned when the receipt belongs to another app
	ErrBundleMismatch = errors.New("appstore: receipt bundle id mismatch")
	// ErrUnavailable wraps transport failures and Apple-side outages; safe to retry
	ErrUnavailable = errors.New("appstore: verification service unavailable")
)

// Config holds App Store receipt validation configuration
type Config struct {
	SharedSecret  string
	BundleID      string
	Sandbox       bool // start with the sandbox endpoint
	ProductionURL string
	SandboxURL    string
	Timeout       time.Duration
}

// Client validates receipts against Apple's verifyReceipt endpoint
type Client struct {
	httpClient *http.Client
	config     Config
}

type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

type verifyResponse struct {
	Status            int           `json:"status"`
	Environment       string        `json:"environment"`
	Receipt           receiptBody   `json:"receipt"`
	LatestReceiptInfo []transaction `json:"latest_receipt_info"`
}

type receiptBody struct {
	BundleID string        `json:"bundle_id"`
	InApp    []transaction `json:"in_app"`
}

type transaction struct {
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	ExpiresDateMS         string `json:"expires_date_ms"`
	CancellationDateMS    string `json:"cancellation_date_ms"`
}

// NewClient creates new App Store client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.ProductionURL == "" {
		cfg.ProductionURL = ProductionURL
	}
	if cfg.SandboxURL == "" {
		cfg.SandboxURL = SandboxURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// VerifyReceipt validates receiptData and returns its transactions.
// A production call answered with 21007 is retried against the sandbox.
func (c *Client) VerifyReceipt(ctx context.Context, receiptData string) (*Receipt, error) {
	if strings.TrimSpace(receiptData) == "" {
		return nil, fmt.Errorf("%w: empty receipt data", ErrInvalidReceipt)
	}
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("appstore client is not initialized")
	}

	endpoint := c.config.ProductionURL
	if c.config.Sandbox {
		endpoint = c.config.SandboxURL
	}

	out, err := c.post(ctx, endpoint, receiptData)
	if err != nil {
		return nil, err
	}
	if out.Status == StatusSandboxReceipt && endpoint != c.config.SandboxURL {
		out, err = c.post(ctx, c.config.SandboxURL, receiptData)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case out.Status == StatusOK:
	case out.Status == StatusServerBusy || (out.Status >= 21100 && out.Status <= 21199):
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, out.Status)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidReceipt, out.Status)
	}

	if c.config.BundleID != "" && out.Receipt.BundleID != c.config.BundleID {
		return nil, ErrBundleMismatch
	}

	return newReceipt(out)
}

func (c *Client) post(ctx context.Context, url, receiptData string) (*verifyResponse, error) {
	jsonData, err := json.Marshal(verifyRequest{
		ReceiptData:            receiptData,
		Password:               c.config.SharedSecret,
		ExcludeOldTransactions: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verifyReceipt request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: verifyReceipt returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse verifyReceipt response: %w", err)
	}

	return &out, nil
}
