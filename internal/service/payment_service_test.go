package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/config"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

func newPaymentService(cfg config.PaymentConfig) *PaymentService {
	return NewPaymentService(cfg, nil, zap.NewNop())
}

func signCallback(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	t.Parallel()

	svc := newPaymentService(config.PaymentConfig{KeyID: "key", KeySecret: "secret"})
	sig := signCallback("secret", "order_1", "pay_1")
	assert.NoError(t, svc.VerifySignature("order_1", "pay_1", sig))
}

func TestVerifySignature_Tampered(t *testing.T) {
	t.Parallel()

	svc := newPaymentService(config.PaymentConfig{KeyID: "key", KeySecret: "secret"})

	// Signature computed over a different payment id.
	sig := signCallback("secret", "order_1", "pay_2")
	err := svc.VerifySignature("order_1", "pay_1", sig)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}

func TestVerifySignature_MissingFields(t *testing.T) {
	t.Parallel()

	svc := newPaymentService(config.PaymentConfig{KeyID: "key", KeySecret: "secret"})
	err := svc.VerifySignature("order_1", "", "sig")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}

func TestCreateOrder_Success(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var payload map[string]any
		assert.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, float64(49900), payload["amount"])
		assert.Equal(t, "INR", payload["currency"])
		assert.Equal(t, "receipt_42", payload["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_test_1",
			Amount:   49900,
			Currency: "INR",
			Receipt:  "receipt_42",
			Status:   "created",
		})
	}))
	defer gateway.Close()

	svc := newPaymentService(config.PaymentConfig{
		BaseURL:   gateway.URL,
		KeyID:     "key_id",
		KeySecret: "key_secret",
	})

	order, err := svc.CreateOrder(context.Background(), 499, "INR", "receipt_42")
	require.NoError(t, err)
	assert.Equal(t, "order_test_1", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrder_GatewayError(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	svc := newPaymentService(config.PaymentConfig{
		BaseURL:   gateway.URL,
		KeyID:     "key_id",
		KeySecret: "key_secret",
	})

	_, err := svc.CreateOrder(context.Background(), 499, "INR", "receipt_42")
	require.Error(t, err)
	assert.Equal(t, 500, apperrors.ToDomainError(err).HTTPStatus)
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()

	svc := newPaymentService(config.PaymentConfig{KeyID: "key", KeySecret: "secret"})
	_, err := svc.CreateOrder(context.Background(), 0, "INR", "receipt_42")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}
