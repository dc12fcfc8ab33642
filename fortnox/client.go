// Package fortnox is the HTTP boundary to the external bookkeeping
// platform. It performs named write endpoints only; the engine interprets
// success and error.
package fortnox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/bokpilot/bokpilot/ai/plan"
)

// Config configures the platform client.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     int     // per-request timeout in seconds
	RateLimit   float64 // requests per second (the platform enforces quotas)
}

// Client calls the bookkeeping platform API. Every write carries the
// caller's idempotency key so retries never duplicate side effects.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a platform client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 4
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		http: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// apiError is the platform's error payload shape.
type apiError struct {
	ErrorInformation struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"ErrorInformation"`
}

// post issues one write. Platform rejections come back as
// plan.ActionWriteError carrying the HTTP status; transport failures are
// wrapped as-is and classify as infrastructure upstream.
func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter interrupted")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrapf(err, "failed to read response from %s", path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := string(respBody)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.ErrorInformation.Message != "" {
			message = apiErr.ErrorInformation.Message
		}
		return &plan.ActionWriteError{
			Operation:  path,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrapf(err, "failed to parse response from %s", path)
		}
	}
	return nil
}

// InvoiceRow is one line of a customer invoice.
type InvoiceRow struct {
	Description string  `json:"Description"`
	Quantity    float64 `json:"DeliveredQuantity"`
	Price       float64 `json:"Price"`
	VATRate     float64 `json:"VAT"`
}

// Invoice is a customer invoice create request.
type Invoice struct {
	CustomerNumber string       `json:"CustomerNumber"`
	InvoiceRows    []InvoiceRow `json:"InvoiceRows"`
	Comments       string       `json:"Comments,omitempty"`
}

// InvoiceResponse is the platform's invoice payload.
type InvoiceResponse struct {
	Invoice struct {
		DocumentNumber string  `json:"DocumentNumber"`
		Total          float64 `json:"Total"`
	} `json:"Invoice"`
}

// CreateInvoice creates a customer invoice.
func (c *Client) CreateInvoice(ctx context.Context, invoice *Invoice, idempotencyKey string) (*InvoiceResponse, error) {
	var out InvoiceResponse
	if err := c.post(ctx, "/invoices", idempotencyKey, map[string]any{"Invoice": invoice}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SupplierInvoice is a supplier invoice booking request.
type SupplierInvoice struct {
	SupplierNumber string       `json:"SupplierNumber"`
	Total          float64      `json:"Total"`
	VAT            float64      `json:"VAT"`
	InvoiceNumber  string       `json:"InvoiceNumber,omitempty"`
	VoucherRows    []VoucherRow `json:"SupplierInvoiceRows,omitempty"`
}

// SupplierInvoiceResponse is the platform's supplier invoice payload.
type SupplierInvoiceResponse struct {
	SupplierInvoice struct {
		GivenNumber string  `json:"GivenNumber"`
		Total       float64 `json:"Total"`
	} `json:"SupplierInvoice"`
}

// CreateSupplierInvoice books a supplier invoice.
func (c *Client) CreateSupplierInvoice(ctx context.Context, invoice *SupplierInvoice, idempotencyKey string) (*SupplierInvoiceResponse, error) {
	var out SupplierInvoiceResponse
	if err := c.post(ctx, "/supplierinvoices", idempotencyKey, map[string]any{"SupplierInvoice": invoice}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VoucherRow is one ledger transaction row of a voucher.
type VoucherRow struct {
	Account     string  `json:"Account"`
	Debit       float64 `json:"Debit"`
	Credit      float64 `json:"Credit"`
	Description string  `json:"TransactionInformation,omitempty"`
}

// Voucher is a manual journal entry.
type Voucher struct {
	Description     string       `json:"Description"`
	TransactionDate string       `json:"TransactionDate"`
	VoucherRows     []VoucherRow `json:"VoucherRows"`
}

// VoucherResponse is the platform's voucher payload.
type VoucherResponse struct {
	Voucher struct {
		VoucherNumber int    `json:"VoucherNumber"`
		VoucherSeries string `json:"VoucherSeries"`
	} `json:"Voucher"`
}

// CreateVoucher books a manual journal entry.
func (c *Client) CreateVoucher(ctx context.Context, voucher *Voucher, idempotencyKey string) (*VoucherResponse, error) {
	var out VoucherResponse
	if err := c.post(ctx, "/vouchers", idempotencyKey, map[string]any{"Voucher": voucher}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InboxFile is the platform's archive file payload.
type InboxFile struct {
	File struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"File"`
}

// UploadInboxFile stores a generated document (e.g. a SIE export) in the
// platform archive inbox.
func (c *Client) UploadInboxFile(ctx context.Context, name string, content []byte, idempotencyKey string) (*InboxFile, error) {
	var out InboxFile
	body := map[string]any{
		"File": map[string]any{
			"Name":    name,
			"Content": content, // base64-encoded by encoding/json
		},
	}
	if err := c.post(ctx, "/inbox", idempotencyKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
