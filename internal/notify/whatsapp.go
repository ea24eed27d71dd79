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

// TemplateMessage — шаблонное сообщение: имя шаблона и упорядоченный
// список параметров (картинка, имя, номер заказа, цена, дата, накладная).
// Порядок значим, его задаёт сам шаблон на стороне провайдера.
type TemplateMessage struct {
	Template string   `json:"template"`
	To       string   `json:"to"`
	Params   []string `json:"params"`
}

// WhatsApp шлёт исходящие шаблонные сообщения через messaging API.
type WhatsApp struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewWhatsApp(baseURL, token string, timeout time.Duration) *WhatsApp {
	return &WhatsApp{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (w *WhatsApp) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, raw)
	}
	return nil
}
