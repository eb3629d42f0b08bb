package razorpay

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

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/fashionstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
	"github.com/angelmondragon/fashionstore-backend/pkg/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	maxRetries       = 2
	retryBase        = 200 * time.Millisecond
	maxResponseBytes = 1 << 20
)

var (
	errLoggerRequired = errors.New("razorpay logger is required")
	errKeyIDRequired  = errors.New("razorpay key id is required")
	errSecretRequired = errors.New("razorpay key secret is required")
	errBaseURLMissing = errors.New("razorpay base url is required")
)

// Client talks to the Razorpay Orders API with basic auth.
type Client struct {
	http      *http.Client
	baseURL   string
	keyID     string
	keySecret string
	logger    *logger.Logger
	backoff   func() retry.Backoff
}

// Order is the subset of the Razorpay order entity the checkout uses.
type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	CreatedAt int64  `json:"created_at"`

	// Raw is the full response body, kept for the transaction audit column.
	Raw json.RawMessage `json:"-"`
}

// CreateOrderParams is the body of POST /orders. Amount is in paise.
type CreateOrderParams struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Field       string `json:"field"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

// NewClient validates the credentials and builds the REST client.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errSecretRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLMissing
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logg,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
		},
	}
	logg.Info(logg.WithField(ctx, "base_url", baseURL), "razorpay client initialized")
	return c, nil
}

// KeyID is the publishable key handed to the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// KeySecret signs payment callbacks.
func (c *Client) KeySecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

// CreateOrder registers an order with the gateway. 5xx and transport
// failures are retried with exponential backoff.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if params.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway amount must be positive")
	}
	if strings.TrimSpace(params.Currency) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway currency is required")
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode razorpay order: %w", err)
	}

	c.log(ctx, "request", "create_order", map[string]any{"receipt": params.Receipt, "amount": params.Amount})
	var order Order
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		raw, err := c.post(ctx, "/orders", body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &order); err != nil {
			return fmt.Errorf("decode razorpay order: %w", err)
		}
		order.Raw = raw
		return nil
	})
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"receipt": params.Receipt, "error": err.Error()})
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order")
	}
	c.log(ctx, "response", "create_order", map[string]any{"gateway_order_id": order.ID, "status": order.Status})
	return &order, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, retry.RetryableError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	apiErr := mapAPIError(resp.StatusCode, raw)
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, retry.RetryableError(apiErr)
	}
	return nil, apiErr
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
		return
	}
	c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "signature", "card", "email", "contact", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func mapAPIError(status int, raw []byte) *pkgerrors.Error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	message := strings.TrimSpace(body.Error.Description)
	if message == "" {
		message = http.StatusText(status)
	}
	details := map[string]any{"status": status}
	if body.Error.Code != "" {
		details["gateway_code"] = body.Error.Code
	}
	if body.Error.Field != "" {
		details["field"] = body.Error.Field
	}
	return pkgerrors.New(domainCodeForStatus(status), "razorpay: "+message).WithDetails(details)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		// rejected merchant credentials
		return pkgerrors.CodeDependency
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeInvalidState
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
