package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/usecase"
)

// EmailHandler confirmation email endpoint
type EmailHandler struct {
	emails usecase.EmailUseCase
}

func NewEmailHandler(emails usecase.EmailUseCase) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// PostSendConfirmationEmail POST /api/send-confirmation-email
func (h *EmailHandler) PostSendConfirmationEmail(c *gin.Context) {
	var req model.ConfirmationEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := validateSquares("squares", req.Squares); err != nil {
		respondError(c, "missing required fields", err)
		return
	}

	resp, err := h.emails.SendConfirmation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "failed to send confirmation email", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
