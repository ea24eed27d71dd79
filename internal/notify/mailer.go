package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Receipt — данные чека по всему батчу: каждая позиция отдельной строкой,
// итог, адрес и (если фулфилмент не деградировал) накладная с датой доставки.
type Receipt struct {
	To       string        `json:"to"`
	Name     string        `json:"name"`
	OrderRef string        `json:"order_ref"`
	Lines    []ReceiptLine `json:"lines"`
	Address  string        `json:"address"`
	Total    int64         `json:"total_paise"`
	Waybill  string        `json:"waybill,omitempty"`
	// nil, если перевозчик не ответил
	DeliveryBy *time.Time `json:"delivery_by,omitempty"`
}

type ReceiptLine struct {
	Product string `json:"product"`
	Size    string `json:"size"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price_paise"`
}

// Mailer шлёт транзакционное письмо через HTTP API почтового сервиса.
type Mailer struct {
	baseURL string
	apiKey  string
	from    string
	httpc   *http.Client
}

func NewMailer(baseURL, apiKey, from string, timeout time.Duration) *Mailer {
	return &Mailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (m *Mailer) SendReceipt(ctx context.Context, r Receipt) error {
	payload := struct {
		From     string  `json:"from"`
		To       string  `json:"to"`
		Subject  string  `json:"subject"`
		Template string  `json:"template"`
		Data     Receipt `json:"data"`
	}{
		From:     m.from,
		To:       r.To,
		Subject:  "Your order " + r.OrderRef + " is confirmed",
		Template: "order-receipt",
		Data:     r,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/smtp/email", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("mailer: status %d: %s", resp.StatusCode, raw)
	}
	return nil
}
