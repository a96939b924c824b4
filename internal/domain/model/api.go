package model

// CheckoutRequest POST /api/checkout
type CheckoutRequest struct {
	Squares       []string  `json:"squares" binding:"required"`
	DonorName     string    `json:"donorName" binding:"required"`
	DonorEmail    string    `json:"donorEmail" binding:"required"`
	DonorGreeting string    `json:"donorGreeting"`
	ModeData      *ModeData `json:"modeData,omitempty"`
	TextSquares   []string  `json:"textSquares,omitempty"` // squares the mode data applies to; all when empty
}

// CheckoutResponse hosted checkout session to redirect to
type CheckoutResponse struct {
	SessionID string  `json:"sessionId"`
	URL       string  `json:"url"`
	Amount    float64 `json:"amount"`
}

// SaveDonationRequest POST /api/donations/test
type SaveDonationRequest struct {
	DonorName     string    `json:"donorName" binding:"required"`
	DonorEmail    string    `json:"donorEmail" binding:"required"`
	DonorGreeting string    `json:"donorGreeting"`
	Squares       []string  `json:"squares" binding:"required"`
	Amount        float64   `json:"amount"`
	ModeData      *ModeData `json:"modeData,omitempty"`
	TextSquares   []string  `json:"textSquares,omitempty"`
}

// SaveDonationResponse saved donation echo
type SaveDonationResponse struct {
	Success  bool      `json:"success"`
	Donation *Donation `json:"donation"`
}

// DonationsResponse GET /api/donations
type DonationsResponse struct {
	SquareData     map[CellKey]SquareInfo `json:"squareData"`
	TotalDonations int                    `json:"totalDonations"`
	TotalSquares   int                    `json:"totalSquares"`
	TotalRaised    float64                `json:"totalRaised"`
	Degraded       bool                   `json:"degraded"` // served from the cached snapshot
}

// DonationDetailResponse GET /api/donations/:id
type DonationDetailResponse struct {
	Donation *Donation `json:"donation"`
	Squares  []CellKey `json:"squares"`
}

// ConfirmationEmailRequest POST /api/send-confirmation-email
type ConfirmationEmailRequest struct {
	DonorName     string   `json:"donorName"`
	DonorEmail    string   `json:"donorEmail" binding:"required"`
	DonorGreeting string   `json:"donorGreeting"`
	Squares       []string `json:"squares" binding:"required"`
	Amount        float64  `json:"amount"`
	TestMode      bool     `json:"testMode"`
}

// ConfirmationEmailResponse result of sending or previewing
type ConfirmationEmailResponse struct {
	Success  bool               `json:"success"`
	TestMode bool               `json:"testMode,omitempty"`
	Message  string             `json:"message"`
	Preview  *ConfirmationEmail `json:"preview,omitempty"`
}

// ClientConfigResponse GET /api/config
type ClientConfigResponse struct {
	TestMode      bool   `json:"testMode"`
	EmailTestMode bool   `json:"emailTestMode"`
	SquarePrice   int    `json:"squarePrice"`
	Currency      string `json:"currency"`
}

// PropertyResponse GET /api/property
type PropertyResponse struct {
	Boundary          interface{} `json:"boundary"` // GeoJSON FeatureCollection
	Bounds            interface{} `json:"bounds"`
	Center            LatLng      `json:"center"`
	TotalSquareMeters float64     `json:"totalSquareMeters"`
}

// CellCoordinatesResponse GET /api/cells/coordinates
type CellCoordinatesResponse struct {
	Cells   map[CellKey]LatLng `json:"cells"`
	Invalid []string           `json:"invalid,omitempty"`
}

// CreateSessionRequest POST /api/sessions
type CreateSessionRequest struct {
	ClientID string `json:"clientId"`
}

// SessionResponse created session
type SessionResponse struct {
	SessionID string           `json:"sessionId"`
	Settings  TextModeSettings `json:"settings"`
	Degraded  bool             `json:"degraded"`
}

// ClickRequest POST /api/sessions/:id/click
type ClickRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ClickResponse toggle outcome
type ClickResponse struct {
	Key      CellKey                `json:"key"`
	Selected bool                   `json:"selected"`
	Warning  *AlreadyDonatedWarning `json:"warning,omitempty"`
}

// TextSelectionRequest POST /api/sessions/:id/text
type TextSelectionRequest struct {
	Text     string            `json:"text"`
	Settings *TextModeSettings `json:"settings,omitempty"` // nil keeps the session settings
	Viewport Viewport          `json:"viewport"`
}

// TextSelectionResponse rasterization outcome
type TextSelectionResponse struct {
	Selected  int       `json:"selected"`
	Conflicts []CellKey `json:"conflicts"`
}

// ConfirmPurchaseRequest POST /api/sessions/:id/confirm and /checkout
type ConfirmPurchaseRequest struct {
	DonorName     string `json:"donorName" binding:"required"`
	DonorEmail    string `json:"donorEmail" binding:"required"`
	DonorGreeting string `json:"donorGreeting"`
}

// ConfirmPurchaseResponse donated records created by a confirmed purchase
type ConfirmPurchaseResponse struct {
	Success bool          `json:"success"`
	Cells   []DonatedCell `json:"cells"`
	Amount  float64       `json:"amount"`
}

// WebhookResult acknowledgement returned to the payment provider
type WebhookResult struct {
	Received   bool   `json:"received"`
	Handled    bool   `json:"handled"`
	DonationID string `json:"donationId,omitempty"`
}
