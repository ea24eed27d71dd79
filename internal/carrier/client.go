package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/velstore/settlement-service/internal/logger"
)

// Client — HTTP-клиент API перевозчика: тариф, создание отправления,
// срок доставки по пинкоду.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

var ErrBadPayload = errors.New("carrier: malformed response payload")

type RateRequest struct {
	PickupPincode string  `json:"pickup_pincode"`
	DropPincode   string  `json:"drop_pincode"`
	WeightKg      float64 `json:"weight_kg"`
	COD           bool    `json:"cod"`
}

type ShipmentRequest struct {
	OrderRef string `json:"order_ref"`

	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`

	WeightKg      float64 `json:"weight_kg"`
	LengthCm      float64 `json:"length_cm"`
	BreadthCm     float64 `json:"breadth_cm"`
	HeightCm      float64 `json:"height_cm"`
	DeclaredValue int64   `json:"declared_value"`

	PickupLocation string `json:"pickup_location"`
	COD            bool   `json:"cod"`
}

func (c *Client) RateQuote(ctx context.Context, req RateRequest) (float64, error) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	if err := c.postJSON(ctx, "/rates", req, &out); err != nil {
		return 0, err
	}
	if out.Amount <= 0 {
		return 0, fmt.Errorf("%w: amount=%v", ErrBadPayload, out.Amount)
	}
	return out.Amount, nil
}

func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (string, error) {
	var out struct {
		Waybill string `json:"waybill"`
	}
	if err := c.postJSON(ctx, "/shipments", req, &out); err != nil {
		return "", err
	}
	if out.Waybill == "" {
		return "", fmt.Errorf("%w: empty waybill", ErrBadPayload)
	}
	return out.Waybill, nil
}

func (c *Client) TransitDays(ctx context.Context, pincode string) (int, error) {
	var out struct {
		Days int `json:"days"`
	}
	u := "/transit-time?pincode=" + url.QueryEscape(pincode)
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return 0, err
	}
	if out.Days <= 0 {
		return 0, fmt.Errorf("%w: days=%d", ErrBadPayload, out.Days)
	}
	return out.Days, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// ретраим сеть и 5xx, 4xx — нет
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpc.Do(req)
		if err != nil {
			logger.Warn("carrier: request failed, will retry", "path", path, "err", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			logger.Warn("carrier: server error, will retry", "path", path, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("carrier: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("carrier: status %d: %s", resp.StatusCode, raw)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return nil
	})
}
