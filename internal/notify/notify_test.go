package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMailerSendReceipt(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/smtp/email" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "key-1" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := NewMailer(srv.URL, "key-1", "shop@example.com", 2*time.Second)
	err := m.SendReceipt(context.Background(), Receipt{
		To:       "asha@example.com",
		Name:     "Asha",
		OrderRef: "order_abc",
		Lines:    []ReceiptLine{{Product: "Plain Tee", Size: "sm", Qty: 1, Price: 49900}},
		Total:    49900,
	})
	if err != nil {
		t.Fatalf("send receipt: %v", err)
	}

	if got["from"] != "shop@example.com" || got["to"] != "asha@example.com" {
		t.Fatalf("bad envelope: %v", got)
	}
	if got["subject"] != "Your order order_abc is confirmed" {
		t.Fatalf("subject = %v", got["subject"])
	}
}

func TestMailerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewMailer(srv.URL, "key-1", "shop@example.com", 2*time.Second)
	if err := m.SendReceipt(context.Background(), Receipt{To: "a@b.c"}); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestWhatsAppSendTemplate(t *testing.T) {
	var got TemplateMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	w := NewWhatsApp(srv.URL, "tok", 2*time.Second)
	msg := TemplateMessage{
		Template: "order-confirmed",
		To:       "+919876543210",
		Params:   []string{"img", "Asha", "id-1", "499.00", "16 Mar 2025", "WB-1"},
	}
	if err := w.SendTemplate(context.Background(), msg); err != nil {
		t.Fatalf("send template: %v", err)
	}

	if got.Template != msg.Template || got.To != msg.To || len(got.Params) != 6 {
		t.Fatalf("payload mismatch: %+v", got)
	}
	// порядок параметров фиксирован шаблоном
	for i := range msg.Params {
		if got.Params[i] != msg.Params[i] {
			t.Fatalf("param %d = %q, want %q", i, got.Params[i], msg.Params[i])
		}
	}
}

func TestWhatsAppErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad template", http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWhatsApp(srv.URL, "tok", 2*time.Second)
	if err := w.SendTemplate(context.Background(), TemplateMessage{}); err == nil {
		t.Fatalf("expected error on 400")
	}
}
