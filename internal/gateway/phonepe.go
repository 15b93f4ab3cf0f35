package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/u3m2a1/nibog-sub001/internal/domain"
	"github.com/u3m2a1/nibog-sub001/internal/txid"
)

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

type Config struct {
	BaseURL     string
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	RedirectURL string
	CallbackURL string
	Timeout     time.Duration
}

// Client talks to a PhonePe-compatible pay-page gateway.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg, http: httpClient}
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type payData struct {
	InstrumentResponse struct {
		RedirectInfo struct {
			URL string `json:"url"`
		} `json:"redirectInfo"`
	} `json:"instrumentResponse"`
}

type statusData struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
	PaymentInstrument     struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
}

// CreatePaymentRedirect registers the transaction with the gateway and
// returns the pay-page URL the parent is redirected to.
func (c *Client) CreatePaymentRedirect(
	ctx context.Context,
	transactionID string,
	userID string,
	amountPaise int64,
	mobile string,
) (string, error) {
	const op = "gateway.Client.CreatePaymentRedirect"

	redirect, err := withQuery(c.cfg.RedirectURL, transactionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(payRequest{
		MerchantID:            c.cfg.MerchantID,
		MerchantTransactionID: transactionID,
		MerchantUserID:        userID,
		Amount:                amountPaise,
		RedirectURL:           redirect,
		RedirectMode:          "REDIRECT",
		CallbackURL:           c.cfg.CallbackURL,
		MobileNumber:          mobile,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	body, _ := json.Marshal(map[string]string{"request": encoded})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", c.checksum(encoded+payPath))

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("%s: %w: %s %s", op, ErrGateway, resp.Code, resp.Message)
	}

	var data payData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("%s: decode data: %w", op, err)
	}
	if data.InstrumentResponse.RedirectInfo.URL == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoRedirect)
	}

	return data.InstrumentResponse.RedirectInfo.URL, nil
}

// CheckStatus queries the gateway once. A "processing" answer comes back as
// PaymentPending with a nil error; only transport trouble is an error.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (domain.PaymentOutcome, error) {
	const op = "gateway.Client.CheckStatus"

	path := fmt.Sprintf("%s/%s/%s", statusPath, c.cfg.MerchantID, url.PathEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", c.checksum(path))
	req.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)

	resp, err := c.do(req)
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	return outcomeFrom(transactionID, resp), nil
}

// VerifyCallback checks the X-VERIFY header of a server-to-server
// notification and decodes the outcome it carries.
func (c *Client) VerifyCallback(body []byte, xVerify string) (domain.PaymentOutcome, error) {
	const op = "gateway.Client.VerifyCallback"

	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: envelope: %v", op, ErrMalformed, err)
	}
	if envelope.Response == "" {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: empty response", op, ErrMalformed)
	}

	expected := c.checksum(envelope.Response)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(xVerify))) != 1 {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w", op, ErrChecksum)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: response: %v", op, ErrMalformed, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: response: %v", op, ErrMalformed, err)
	}

	var data statusData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: data: %v", op, ErrMalformed, err)
	}
	if data.MerchantTransactionID == "" {
		return domain.PaymentOutcome{}, fmt.Errorf("%s: %w: missing transaction id", op, ErrMalformed)
	}

	return outcomeFrom(data.MerchantTransactionID, &resp), nil
}

// Checksum returns the X-VERIFY value for payload. Exposed for tests and
// for tooling that replays webhooks.
func (c *Client) Checksum(payload string) string {
	return c.checksum(payload)
}

func (c *Client) checksum(payload string) string {
	sum := sha256.Sum256([]byte(payload + c.cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.cfg.SaltIndex
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrTransient, res.StatusCode)
	}

	var out apiResponse
	if err := json.Unmarshal(b, &out); err != nil {
		if res.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: status %d", ErrGateway, res.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode body: %v", ErrTransient, err)
	}

	// The status API answers 4xx with a JSON body for declined payments;
	// those carry a code and are handed to the mapper.
	if res.StatusCode >= 400 && out.Code == "" {
		return nil, fmt.Errorf("%w: status %d", ErrGateway, res.StatusCode)
	}

	return &out, nil
}

func outcomeFrom(transactionID string, resp *apiResponse) domain.PaymentOutcome {
	out := domain.PaymentOutcome{
		TransactionID: transactionID,
		Status:        MapCode(resp.Code),
	}

	var data statusData
	if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &data) == nil {
		out.ProviderRef = data.TransactionID
		out.AmountPaise = data.Amount
		out.Method = data.PaymentInstrument.Type
	}

	return out
}

// MapCode folds provider response codes into the four-value status.
// Unknown codes are treated as still pending so the caller keeps polling
// rather than declaring a paid transaction failed.
func MapCode(code string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "PAYMENT_SUCCESS":
		return domain.PaymentSuccess
	case "PAYMENT_PENDING", "PAYMENT_INITIATED", "INTERNAL_SERVER_ERROR":
		return domain.PaymentPending
	case "PAYMENT_DECLINED", "PAYMENT_ERROR", "TIMED_OUT", "AUTHORIZATION_FAILED",
		"TRANSACTION_NOT_FOUND", "BAD_REQUEST":
		return domain.PaymentFailed
	case "PAYMENT_CANCELLED", "USER_CANCELLED":
		return domain.PaymentCancelled
	default:
		return domain.PaymentPending
	}
}

func withQuery(base, transactionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("transactionId", transactionID)
	if id, err := txid.Parse(transactionID); err == nil {
		q.Set("bookingId", strconv.FormatInt(id.BookingID, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
