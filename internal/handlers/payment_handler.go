package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/cache"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/ledger"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceivePaymentRequest is the counter-side payment form. BillID left out
// means "whatever this customer owes, oldest bills first".
type ReceivePaymentRequest struct {
	CustomerID    uint            `json:"customer_id" binding:"required"`
	BillID        *uint           `json:"bill_id"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Notes         string          `json:"notes"`
}

// --- POST: /api/payments ---
func ReceivePayment(c *gin.Context) {
	var req ReceivePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	payment := models.Payment{
		ReceiptNumber: utils.GenerateReceiptNumber(),
		CustomerID:    req.CustomerID,
		BillID:        req.BillID,
		Amount:        req.Amount,
		Date:          time.Now(),
		PaymentMethod: req.PaymentMethod,
		ReceivedBy:    c.GetUint("userID"),
		Notes:         req.Notes,
	}

	unallocated, err := ledger.Apply(database.DB, &payment)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrCustomerNotFound), errors.Is(err, ledger.ErrBillNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrNonPositiveAmount), errors.Is(err, ledger.ErrBillMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
		}
		return
	}

	cache.Invalidate(c.Request.Context(), dashboardCacheKey)

	c.JSON(http.StatusCreated, gin.H{
		"payment":            payment,
		"unallocated_amount": unallocated,
	})
}

// --- GET: /api/payments ---
func ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	database.DB.Model(&models.Payment{}).Count(&total)

	var payments []models.Payment
	err := database.DB.Preload("Customer").Preload("Allocations").
		Order("date desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&payments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  payments,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// --- DELETE: /api/payments/:id ---
// Reverses the payment through the ledger: every bill it touched gives the
// money back and the customer's balance is recomputed.
func DeletePayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	if err := ledger.Reverse(database.DB, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reverse payment"})
		return
	}

	cache.Invalidate(c.Request.Context(), dashboardCacheKey)
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted and reversed"})
}
