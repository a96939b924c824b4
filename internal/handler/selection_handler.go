package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/application"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// SelectionHandler selection session endpoints
type SelectionHandler struct {
	sessions application.SelectionSessionService
}

func NewSelectionHandler(sessions application.SelectionSessionService) *SelectionHandler {
	return &SelectionHandler{sessions: sessions}
}

// CreateSession POST /api/sessions
func (h *SelectionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	resp, err := h.sessions.CreateSession(c.Request.Context(), req.ClientID)
	if err != nil {
		respondError(c, "failed to create session", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSession GET /api/sessions/:id
func (h *SelectionHandler) GetSession(c *gin.Context) {
	state, err := h.sessions.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, "failed to load session", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Click POST /api/sessions/:id/click
func (h *SelectionHandler) Click(c *gin.Context) {
	var req model.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validateLatLng(req.Lat, req.Lng); err != nil {
		respondError(c, "validation error", err)
		return
	}

	resp, err := h.sessions.Click(c.Param("id"), model.LatLng{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		respondError(c, "click rejected", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyText POST /api/sessions/:id/text
func (h *SelectionHandler) ApplyText(c *gin.Context) {
	var req model.TextSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len([]rune(req.Text)) > maxTextLength {
		respondError(c, "validation error", &ValidationError{Field: "text", Message: "text is too long"})
		return
	}

	resp, err := h.sessions.ApplyText(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "text selection failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ClearSelection DELETE /api/sessions/:id/selection
func (h *SelectionHandler) ClearSelection(c *gin.Context) {
	if err := h.sessions.Clear(c.Param("id")); err != nil {
		respondError(c, "failed to clear selection", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Refresh POST /api/sessions/:id/refresh
func (h *SelectionHandler) Refresh(c *gin.Context) {
	state, err := h.sessions.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to refresh donations", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Confirm POST /api/sessions/:id/confirm
func (h *SelectionHandler) Confirm(c *gin.Context) {
	donor, ok := bindDonor(c)
	if !ok {
		return
	}
	resp, err := h.sessions.Confirm(c.Request.Context(), c.Param("id"), donor)
	if err != nil {
		respondError(c, "purchase failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Checkout POST /api/sessions/:id/checkout
func (h *SelectionHandler) Checkout(c *gin.Context) {
	donor, ok := bindDonor(c)
	if !ok {
		return
	}
	resp, err := h.sessions.Checkout(c.Request.Context(), c.Param("id"), donor, requestOrigin(c))
	if err != nil {
		respondError(c, "failed to create checkout session", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSettings GET /api/sessions/:id/settings
func (h *SelectionHandler) GetSettings(c *gin.Context) {
	settings, err := h.sessions.GetSettings(c.Param("id"))
	if err != nil {
		respondError(c, "failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutSettings PUT /api/sessions/:id/settings
func (h *SelectionHandler) PutSettings(c *gin.Context) {
	var req model.TextModeSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	settings, err := h.sessions.UpdateSettings(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "failed to save settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

const maxTextLength = 200

func bindDonor(c *gin.Context) (model.DonorInfo, bool) {
	var req model.ConfirmPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return model.DonorInfo{}, false
	}
	if err := validateDonor(req.DonorName, req.DonorEmail); err != nil {
		respondError(c, "validation error", err)
		return model.DonorInfo{}, false
	}
	return model.DonorInfo{Name: req.DonorName, Email: req.DonorEmail, Greeting: req.DonorGreeting}, true
}

func validateLatLng(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return &ValidationError{Field: "lat", Message: "latitude must be between -90 and 90"}
	}
	if lng < -180 || lng > 180 {
		return &ValidationError{Field: "lng", Message: "longitude must be between -180 and 180"}
	}
	return nil
}
