package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

// DonationsHandler donation listing and test-mode saving
type DonationsHandler struct {
	donations usecase.DonationUseCase
}

func NewDonationsHandler(donations usecase.DonationUseCase) *DonationsHandler {
	return &DonationsHandler{donations: donations}
}

// GetDonations GET /api/donations
func (h *DonationsHandler) GetDonations(c *gin.Context) {
	resp, err := h.donations.ListDonations(c.Request.Context())
	if err != nil {
		respondError(c, "failed to load donations", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetDonation GET /api/donations/:id
func (h *DonationsHandler) GetDonation(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, "donation id is required", &ValidationError{Field: "id", Message: "required"})
		return
	}
	resp, err := h.donations.GetDonation(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to load donation", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveTestDonation POST /api/donations/test
func (h *DonationsHandler) SaveTestDonation(c *gin.Context) {
	var req model.SaveDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validateDonor(req.DonorName, req.DonorEmail); err != nil {
		respondError(c, "validation error", err)
		return
	}
	if err := validateSquares("squares", req.Squares); err != nil {
		respondError(c, "validation error", err)
		return
	}

	resp, err := h.donations.SaveTestDonation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "failed to save donation", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func validateDonor(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "donorName", Message: "donor name is required"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "donorEmail", Message: "a valid email address is required"}
	}
	return nil
}
