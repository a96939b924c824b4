package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

// Stripe webhook payloads are small; anything larger is rejected
const maxWebhookBodyBytes = 64 * 1024

// CheckoutHandler hosted checkout creation and the payment webhook
type CheckoutHandler struct {
	checkout usecase.CheckoutUseCase
}

func NewCheckoutHandler(checkout usecase.CheckoutUseCase) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// PostCheckout POST /api/checkout
func (h *CheckoutHandler) PostCheckout(c *gin.Context) {
	var req model.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validateSquares("squares", req.Squares); err != nil {
		respondError(c, "invalid squares data", err)
		return
	}
	if err := validateDonor(req.DonorName, req.DonorEmail); err != nil {
		respondError(c, "donor name and email required", err)
		return
	}

	resp, err := h.checkout.CreateCheckout(c.Request.Context(), &req, requestOrigin(c))
	if err != nil {
		respondError(c, "failed to create checkout session", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PostWebhook POST /api/webhook
func (h *CheckoutHandler) PostWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable webhook body", "details": err.Error()})
		return
	}

	result, err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("❌ Webhook handling failed: %v", err)
		respondError(c, "webhook error", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// requestOrigin is where the donor returns after checkout: Origin, then Referer
func requestOrigin(c *gin.Context) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		return origin
	}
	referer := c.GetHeader("Referer")
	if i := strings.IndexAny(referer, "?#"); i >= 0 {
		referer = referer[:i]
	}
	return referer
}
