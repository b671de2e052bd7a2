package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/video-service/internal/events"
	"github.com/spec-kit/video-service/internal/mailer"
)

// NotificationService turns domain events into outbound emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	mail       mailer.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mail mailer.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, mail: mail, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
	n.dispatcher.Subscribe(events.EventPaymentConfirmed, n.handlePaymentConfirmed)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Hello %s,\n\nYour account %q has been created. Welcome aboard!", payload.FullName, payload.Username)
	n.send(payload.Email, "Welcome", body)
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordChangedPayload)
	if !ok {
		return nil
	}
	n.send(payload.Email, "Password changed", "Your account password was changed. If this was not you, contact support.")
	return nil
}

func (n *NotificationService) handlePaymentConfirmed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PaymentConfirmedPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Hello %s,\n\nYour payment of %d has been successfully processed. Your payment ID is %s.\n\nThank you for your purchase!",
		payload.Name, payload.Amount, payload.PaymentID)
	n.send(payload.Email, "Payment Confirmation", body)
	return nil
}

func (n *NotificationService) send(to, subject, body string) {
	if err := n.mail.Send(to, subject, body); err != nil {
		n.logger.Warn("email delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	n.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
}
