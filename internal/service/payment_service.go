package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/config"
	"github.com/spec-kit/video-service/internal/events"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// Order is the gateway order as returned to clients.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentService fronts the payment gateway: order creation, callback
// signature verification and confirmation email dispatch. Order semantics
// beyond this narrow client belong to the gateway.
type PaymentService struct {
	cfg        config.PaymentConfig
	client     *http.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewPaymentService builds the service.
func NewPaymentService(cfg config.PaymentConfig, dispatcher events.Dispatcher, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		cfg:        cfg,
		client:     &http.Client{Timeout: 10 * time.Second},
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateOrder registers an order with the gateway. Amount is in major
// currency units and converted to minor units on the wire.
func (s *PaymentService) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if amount <= 0 || currency == "" || receipt == "" {
		return nil, apperrors.NewValidationError("amount, currency and receipt are required", nil)
	}
	if s.cfg.KeyID == "" || s.cfg.KeySecret == "" {
		return nil, apperrors.NewInternalError(fmt.Errorf("payment gateway credentials not configured"))
	}

	payload, err := json.Marshal(map[string]any{
		"amount":   amount * 100,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewInternalError(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("payment order created", zap.String("order_id", order.ID), zap.String("receipt", receipt))
	return &order, nil
}

// VerifySignature checks the gateway callback signature:
// HMAC-SHA256(orderID + "|" + paymentID) keyed with the gateway secret.
func (s *PaymentService) VerifySignature(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return apperrors.NewValidationError("order id, payment id and signature are required", nil)
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.NewValidationError("invalid payment signature", nil)
	}
	return nil
}

// SendConfirmation publishes a payment-confirmed event; the notification
// pipeline delivers the email.
func (s *PaymentService) SendConfirmation(ctx context.Context, email, name string, amount int64, paymentID string) error {
	if email == "" || paymentID == "" {
		return apperrors.NewValidationError("email and payment id are required", nil)
	}
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPaymentConfirmed,
		Timestamp: time.Now(),
		Payload: events.PaymentConfirmedPayload{
			Email:     email,
			Name:      name,
			Amount:    amount,
			PaymentID: paymentID,
		},
	})
}
