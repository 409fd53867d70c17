package handlers

import (
	"fmt"
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

// BillLineRequest is one product line on the billing screen.
type BillLineRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateBillRequest carries the whole billing form. The customer is keyed
// by phone: an unknown phone creates the account on the spot.
type CreateBillRequest struct {
	CustomerName    string            `json:"customer_name" binding:"required"`
	CustomerPhone   string            `json:"customer_phone" binding:"required"`
	CustomerAddress string            `json:"customer_address"`
	Items           []BillLineRequest `json:"items" binding:"required"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	PaymentMethod   string            `json:"payment_method"`
}

// --- POST: /api/bills ---
// Creates the bill with zero paid, deducts stock under row locks, then
// books any upfront payment through the ledger so the bill's status and
// the customer's balance come out of the same code path as every other
// payment.
func CreateBill(c *gin.Context) {
	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PaidAmount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paid amount cannot be negative"})
		return
	}

	userID := c.GetUint("userID")

	var bill models.Bill
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// Find or create the customer by phone.
		var customer models.Customer
		err := tx.Where("phone = ?", req.CustomerPhone).First(&customer).Error
		if err != nil {
			customer = models.Customer{
				Name:      req.CustomerName,
				Phone:     req.CustomerPhone,
				Address:   req.CustomerAddress,
				CreatedBy: userID,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
		} else {
			customer.Name = req.CustomerName
			customer.Address = req.CustomerAddress
			if err := tx.Save(&customer).Error; err != nil {
				return err
			}
		}

		var items []models.BillItem
		total := decimal.Zero

		for _, line := range req.Items {
			// Malformed lines are skipped, not fatal.
			if line.ProductID == 0 || line.Quantity <= 0 {
				continue
			}

			var product models.Product
			err := database.ForUpdate(tx).First(&product, line.ProductID).Error
			if err != nil {
				continue // unknown product, skip the line
			}

			if product.CurrentStock < line.Quantity {
				return fmt.Errorf("insufficient stock for %s", product.Name)
			}

			product.CurrentStock -= line.Quantity
			if err := tx.Save(&product).Error; err != nil {
				return err
			}

			lineTotal := product.MarketPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.BillItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.MarketPrice,
				Total:     lineTotal,
			})
			total = total.Add(lineTotal)
		}

		if len(items) == 0 {
			return fmt.Errorf("no valid line items")
		}

		bill = models.Bill{
			BillNumber:  utils.GenerateBillNumber(time.Now()),
			CustomerID:  customer.ID,
			Date:        time.Now(),
			TotalAmount: total,
			PaidAmount:  decimal.Zero,
			CreatedBy:   userID,
			Items:       items,
		}
		ledger.Recalculate(&bill)
		if err := tx.Create(&bill).Error; err != nil {
			return err
		}

		_, err = ledger.RecomputeBalance(tx, customer.ID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Upfront payment goes through the regular reconciliation path.
	if req.PaidAmount.IsPositive() {
		method := req.PaymentMethod
		if method == "" {
			method = models.MethodCash
		}
		payment := models.Payment{
			ReceiptNumber: utils.GenerateReceiptNumber(),
			CustomerID:    bill.CustomerID,
			BillID:        &bill.ID,
			Amount:        req.PaidAmount,
			Date:          time.Now(),
			PaymentMethod: method,
			ReceivedBy:    userID,
			Notes:         "Payment for bill " + bill.BillNumber,
		}
		if _, err := ledger.Apply(database.DB, &payment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Bill created but payment failed: " + err.Error()})
			return
		}
	}

	cache.Invalidate(c.Request.Context(), dashboardCacheKey)

	// Reload with derived fields and items in their final state.
	if err := database.DB.Preload("Items").Preload("Items.Product").
		First(&bill, bill.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload bill"})
		return
	}

	c.JSON(http.StatusCreated, bill)
}

// --- GET: /api/bills ---
func ListBills(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	database.DB.Model(&models.Bill{}).Count(&total)

	var bills []models.Bill
	err := database.DB.Preload("Customer").Preload("Items").Preload("Items.Product").
		Order("date desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&bills).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bills"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  bills,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// --- GET: /api/bills/:id ---
func GetBill(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill ID"})
		return
	}

	var bill models.Bill
	err = database.DB.Preload("Customer").Preload("Items").Preload("Items.Product").
		First(&bill, id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
		return
	}

	c.JSON(http.StatusOK, bill)
}

// --- DELETE: /api/bills/:id ---
// Removes the bill with its lines and allocation history, then refreshes
// the customer's balance. Payments that pointed at the bill survive as
// unlinked records.
func DeleteBill(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill ID"})
		return
	}

	var bill models.Bill
	if err := database.DB.First(&bill, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bill not found"})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.PaymentAllocation{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).Where("bill_id = ?", bill.ID).
			Update("bill_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&bill).Error; err != nil {
			return err
		}
		_, err := ledger.RecomputeBalance(tx, bill.CustomerID)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete bill"})
		return
	}

	cache.Invalidate(c.Request.Context(), dashboardCacheKey)
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}
