package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/video-service/internal/api/dto"
	"github.com/spec-kit/video-service/internal/service"
	apperrors "github.com/spec-kit/video-service/pkg/util"
)

// PaymentsHandler exposes the payment gateway endpoints.
type PaymentsHandler struct {
	payments *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(payments *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

// CreateOrder handles POST /api/v1/payments/create-order.
func (h *PaymentsHandler) CreateOrder(c *fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	order, err := h.payments.CreateOrder(c.Context(), req.Amount, req.Currency, req.Receipt)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"order": order}})
}

// Verify handles POST /api/v1/payments/verify.
func (h *PaymentsHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.payments.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"orderId":   req.OrderID,
		"paymentId": req.PaymentID,
		"verified":  true,
	}})
}

// ConfirmationEmail handles POST /api/v1/payments/confirmation-email.
func (h *PaymentsHandler) ConfirmationEmail(c *fiber.Ctx) error {
	var req dto.PaymentEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.payments.SendConfirmation(c.Context(), req.Email, req.Name, req.Amount, req.PaymentID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": nil})
}
