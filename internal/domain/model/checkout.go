package model

import "time"

// CheckoutSessionParams input for the payment provider
type CheckoutSessionParams struct {
	Squares       []CellKey
	Donor         DonorInfo
	UnitAmountOre int64
	Currency      string
	ProductName   string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession hosted checkout created by the payment provider
type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedCheckout payload of a checkout.session.completed event
type CompletedCheckout struct {
	SessionID      string
	CustomerEmail  string
	AmountTotalOre int64
	PaymentStatus  string
	Metadata       map[string]string
}

// WebhookEvent verified provider event; Checkout is set only for completed sessions
type WebhookEvent struct {
	ID       string
	Type     string
	Checkout *CompletedCheckout
}

// PendingCheckout checkout data kept until the webhook arrives (Firestore, TTL)
type PendingCheckout struct {
	SessionID     string    `firestore:"sessionId"`
	DonorName     string    `firestore:"donorName"`
	DonorEmail    string    `firestore:"donorEmail"`
	DonorGreeting string    `firestore:"donorGreeting"`
	Squares       []string  `firestore:"squares"`
	TextSquares   []string  `firestore:"textSquares,omitempty"` // subset produced by text mode
	Amount        float64   `firestore:"amount"`
	ModeData      *ModeData `firestore:"modeData,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	ExpireAt      time.Time `firestore:"expireAt"` // Firestore TTL policy field
}

// ConfirmationEmail composed message ready for delivery
type ConfirmationEmail struct {
	To           string `json:"to"`
	From         string `json:"from"`
	Subject      string `json:"subject"`
	Text         string `json:"text"`
	HTML         string `json:"html"`
	HighlightURL string `json:"highlightUrl"`
}
