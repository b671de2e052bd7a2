package dto

// CreateOrderRequest payload for gateway order creation. Amount is in major
// currency units.
type CreateOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// VerifyPaymentRequest payload for callback signature verification.
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// PaymentEmailRequest payload for the confirmation email endpoint.
type PaymentEmailRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"paymentId"`
}
