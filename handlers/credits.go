package handlers

import (
	"net/http"

	creditRepo "classbook/database/repository/credit"
	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// CreditHandler exposes the package-credit ledger.
type CreditHandler struct {
	Credits creditRepo.Repository
}

func NewCreditHandler(credits creditRepo.Repository) *CreditHandler {
	return &CreditHandler{Credits: credits}
}

// GrantCredits adds purchased credits to a student's balance for one class.
// Instructor-only; called after an out-of-band package sale.
// POST /api/credits/grant
func (h *CreditHandler) GrantCredits(c *gin.Context) {
	var input struct {
		StudentID string `json:"studentId" binding:"required"`
		ClassID   string `json:"classId" binding:"required"`
		Credits   int    `json:"credits" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Credits.Grant(c.Request.Context(), input.StudentID, input.ClassID, input.Credits); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to grant credits", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

// GetBalance returns the caller's credit balance for one class.
// GET /api/credits/:classID
func (h *CreditHandler) GetBalance(c *gin.Context) {
	studentID := c.GetString("accountID")
	balance, err := h.Credits.Balance(c.Request.Context(), studentID, c.Param("classID"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read balance", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"classId": c.Param("classID"), "balance": balance})
}
