package model

import "fmt"

// Pricing constants used by checkout and the donation records
const (
	DefaultSquarePriceSEK = 20    // price of one square meter in SEK
	OrePerKrona           = 100   // Stripe amounts are expressed in öre
	DefaultCurrency       = "sek" // ISO currency code sent to the payment provider
)

// Product constants shown on the hosted checkout page and in emails
const (
	ProductName         = "Save The Square - Visne Ängar"
	PropertyName        = "Visne Ängar"
	DefaultFromEmail    = "noreply@savethesquare.se"
	ConfirmationSubject = "Tack för din donation till Visne Ängar! 🌿"
)

// Payment status values stored with each donation
const (
	PaymentStatusPaid          = "paid"
	PaymentStatusTestSimulated = "test_mode_simulated"
)

// EventCheckoutSessionCompleted is the only webhook event that creates a donation
const EventCheckoutSessionCompleted = "checkout.session.completed"

// ModeLabelMap maps a provenance mode to the Swedish label used in popups
var ModeLabelMap = map[ProvenanceMode]string{
	ProvenanceModeClick: "Vald på kartan",
	ProvenanceModeText:  "Del av text",
}

// GetModeLabel returns the popup label for a provenance mode
func GetModeLabel(mode ProvenanceMode) string {
	if label, ok := ModeLabelMap[mode]; ok {
		return label
	}
	return string(mode) // unknown modes are shown as-is
}

// DonationDescription is the checkout line item description for n square meters
func DonationDescription(squareCount int) string {
	return fmt.Sprintf("Donation för %d kvadratmeter", squareCount)
}

// DonationAmount returns the SEK amount for a number of squares
func DonationAmount(squareCount, pricePerSquare int) float64 {
	return float64(squareCount * pricePerSquare)
}
