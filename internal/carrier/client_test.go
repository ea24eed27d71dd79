package carrier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velstore/settlement-service/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestRateQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"amount": 150.5}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	amount, err := c.RateQuote(context.Background(), RateRequest{
		PickupPincode: "110001",
		DropPincode:   "560001",
		WeightKg:      1.2,
	})
	require.NoError(t, err)
	assert.Equal(t, 150.5, amount)
}

// Пустая/нулевая котировка — это деградация стороннего API, а не нулевая
// цена доставки; наружу уходит типизированная ошибка.
func TestRateQuoteEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	_, err := c.RateQuote(context.Background(), RateRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}

func TestRateQuoteRetriesOn5xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"amount": 99}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	amount, err := c.RateQuote(context.Background(), RateRequest{})
	require.NoError(t, err)
	assert.Equal(t, float64(99), amount)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRateQuoteNoRetryOn4xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	_, err := c.RateQuote(context.Background(), RateRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCreateShipment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipments", r.URL.Path)
		w.Write([]byte(`{"waybill": "WB-123456"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	wb, err := c.CreateShipment(context.Background(), ShipmentRequest{OrderRef: "order_abc"})
	require.NoError(t, err)
	assert.Equal(t, "WB-123456", wb)
}

func TestCreateShipmentEmptyWaybill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"waybill": ""}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	_, err := c.CreateShipment(context.Background(), ShipmentRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}

func TestTransitDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transit-time", r.URL.Path)
		assert.Equal(t, "560001", r.URL.Query().Get("pincode"))
		w.Write([]byte(`{"days": 4}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	days, err := c.TransitDays(context.Background(), "560001")
	require.NoError(t, err)
	assert.Equal(t, 4, days)
}

func TestTransitDaysMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 2*time.Second)
	_, err := c.TransitDays(context.Background(), "560001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadPayload))
}
