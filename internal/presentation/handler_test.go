package presentation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/velstore/settlement-service/internal/logger"
	"github.com/velstore/settlement-service/internal/signature"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeSettlement struct {
	calls    int
	payments []string
	refs     []string
	err      error
}

func (f *fakeSettlement) Settle(_ context.Context, paymentID, orderRef string) error {
	f.calls++
	f.payments = append(f.payments, paymentID)
	f.refs = append(f.refs, orderRef)
	return f.err
}

const secret = "whsec_test"

var eventBody = []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_abc"}}}}`)

func newServer(svc *fakeSettlement) *httptest.Server {
	r := chi.NewRouter()
	NewWebhookHandler(svc, secret).Register(r)
	return httptest.NewServer(r)
}

func post(t *testing.T, url string, body []byte, sig string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/webhook/payment", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Razorpay-Signature", sig)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestWebhookValidSignature(t *testing.T) {
	svc := &fakeSettlement{}
	srv := newServer(svc)
	defer srv.Close()

	resp := post(t, srv.URL, eventBody, signature.Sign(eventBody, secret))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.calls != 1 {
		t.Fatalf("settle calls = %d, want 1", svc.calls)
	}
	if svc.payments[0] != "pay_1" || svc.refs[0] != "order_abc" {
		t.Fatalf("settle got (%s, %s)", svc.payments[0], svc.refs[0])
	}
}

// Плохая подпись: отвечаем 200 (иначе провайдер зациклится на редоставке),
// но сеттлмент не трогаем вообще.
func TestWebhookBadSignature(t *testing.T) {
	svc := &fakeSettlement{}
	srv := newServer(svc)
	defer srv.Close()

	tampered := bytes.Replace(eventBody, []byte("order_abc"), []byte("order_xyz"), 1)
	resp := post(t, srv.URL, tampered, signature.Sign(eventBody, secret))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.calls != 0 {
		t.Fatalf("settle must not be called, got %d calls", svc.calls)
	}
}

func TestWebhookMissingSignature(t *testing.T) {
	svc := &fakeSettlement{}
	srv := newServer(svc)
	defer srv.Close()

	resp := post(t, srv.URL, eventBody, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || svc.calls != 0 {
		t.Fatalf("status = %d, calls = %d; want 200 and 0", resp.StatusCode, svc.calls)
	}
}

// Единственный не-200: сеттлмент вернул ошибку (БД недоступна на переходе
// в paid) — просим провайдера повторить доставку.
func TestWebhookSettlementFailure(t *testing.T) {
	svc := &fakeSettlement{err: errors.New("db unreachable")}
	srv := newServer(svc)
	defer srv.Close()

	resp := post(t, srv.URL, eventBody, signature.Sign(eventBody, secret))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestWebhookSignedGarbage(t *testing.T) {
	svc := &fakeSettlement{}
	srv := newServer(svc)
	defer srv.Close()

	body := []byte(`not json at all`)
	resp := post(t, srv.URL, body, signature.Sign(body, secret))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || svc.calls != 0 {
		t.Fatalf("status = %d, calls = %d; want 200 and 0", resp.StatusCode, svc.calls)
	}
}

func TestWebhookEventWithoutIDs(t *testing.T) {
	svc := &fakeSettlement{}
	srv := newServer(svc)
	defer srv.Close()

	body := []byte(`{"event":"payment.captured","payload":{}}`)
	resp := post(t, srv.URL, body, signature.Sign(body, secret))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || svc.calls != 0 {
		t.Fatalf("status = %d, calls = %d; want 200 and 0", resp.StatusCode, svc.calls)
	}
}
