// Package midtrans is a minimal client for the Midtrans Snap and Core APIs,
// covering transaction creation and status lookup.
package midtrans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

// Config holds Midtrans connection settings. The sandbox endpoints are used
// unless overridden.
type Config struct {
	ServerKey string
	SnapURL   string
	CoreURL   string
	Timeout   time.Duration
}

// Client talks to Midtrans over HTTP. It implements payment.Gateway.
type Client struct {
	serverKey string
	snapURL   string
	coreURL   string
	http      *http.Client
}

// NewClient creates a Client from cfg. Empty URLs fall back to the sandbox.
func NewClient(cfg Config) *Client {
	snapURL := cfg.SnapURL
	if snapURL == "" {
		snapURL = "https://app.sandbox.midtrans.com"
	}
	coreURL := cfg.CoreURL
	if coreURL == "" {
		coreURL = "https://api.sandbox.midtrans.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		serverKey: cfg.ServerKey,
		snapURL:   strings.TrimSuffix(snapURL, "/"),
		coreURL:   strings.TrimSuffix(coreURL, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx response from Midtrans.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("midtrans responded %d: %s", e.StatusCode, e.Body)
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string          `json:"order_id"`
		GrossAmount decimal.Decimal `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails *snapCustomer `json:"customer_details,omitempty"`
}

type snapCustomer struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type snapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// CreateTransaction opens a Snap checkout session for the order.
func (c *Client) CreateTransaction(ctx context.Context, orderNumber string, grossAmount decimal.Decimal, customer payment.Customer) (*payment.Session, error) {
	var body snapRequest
	body.TransactionDetails.OrderID = orderNumber
	body.TransactionDetails.GrossAmount = grossAmount
	if customer != (payment.Customer{}) {
		body.CustomerDetails = &snapCustomer{
			FirstName: customer.Name,
			Email:     customer.Email,
			Phone:     customer.Phone,
		}
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.snapURL+"/snap/v1/transactions", bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	var out snapResponse
	if err := c.do(req, &out); err != nil {
		return nil, errors.Wrap(err, "snap transaction")
	}
	return &payment.Session{Token: out.Token, RedirectURL: out.RedirectURL}, nil
}

type statusResponse struct {
	OrderID           string `json:"order_id"`
	PaymentType       string `json:"payment_type"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id"`
}

// GetTransactionStatus fetches the canonical transaction state from the
// Core API.
func (c *Client) GetTransactionStatus(ctx context.Context, orderNumber string) (*payment.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.coreURL+"/v2/"+orderNumber+"/status", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	var out statusResponse
	if err := c.do(req, &out); err != nil {
		return nil, errors.Wrap(err, "transaction status")
	}
	return &payment.Transaction{
		OrderNumber:       out.OrderID,
		PaymentType:       out.PaymentType,
		TransactionStatus: out.TransactionStatus,
		TransactionTime:   out.TransactionTime,
		GrossAmount:       out.GrossAmount,
		TransactionID:     out.TransactionID,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
