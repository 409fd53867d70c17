package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/cache"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/ledger"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dashboardCacheKey = "reports:dashboard"

// --- GET: /api/reports/dashboard ---
// Cached for 30s; every bill/payment write invalidates it.
func GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	if cached := cache.Get(ctx, dashboardCacheKey); cached != "" {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	stats, err := database.GetDashboardStats(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard"})
		return
	}

	if payload, err := json.Marshal(stats); err == nil {
		cache.Set(ctx, dashboardCacheKey, string(payload), 30*time.Second)
	}

	c.JSON(http.StatusOK, stats)
}

// LendingEntry is one customer row on the lending (udhaar) report.
type LendingEntry struct {
	Customer           models.Customer `json:"customer"`
	TotalBills         int             `json:"total_bills"`
	TotalPurchases     decimal.Decimal `json:"total_purchases"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// --- GET: /api/reports/lending ---
// Filters: ?search= on name/phone/address, ?payment_status= one of
// pending|completed|high_balance.
func GetLendingReport(c *gin.Context) {
	entries, totalOutstanding, pendingCount, err := buildLendingReport(
		c.Query("search"), c.Query("payment_status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build lending report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers":         entries,
		"total_customers":   len(entries),
		"total_outstanding": totalOutstanding,
		"pending_customers": pendingCount,
	})
}

// buildLendingReport is shared with the XLSX export.
func buildLendingReport(search, statusFilter string) ([]LendingEntry, decimal.Decimal, int, error) {
	query := database.DB.Order("outstanding_balance desc")

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ? OR address LIKE ?", like, like, like)
	}

	highBalanceMark := decimal.NewFromInt(5000)
	switch statusFilter {
	case "pending":
		query = query.Where("outstanding_balance > 0")
	case "completed":
		query = query.Where("outstanding_balance = 0")
	case "high_balance":
		query = query.Where("outstanding_balance > ?", highBalanceMark)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, decimal.Zero, 0, err
	}

	entries := make([]LendingEntry, 0, len(customers))
	totalOutstanding := decimal.Zero
	pendingCount := 0

	for _, customer := range customers {
		var bills []models.Bill
		err := database.DB.Select("total_amount").
			Where("customer_id = ?", customer.ID).Find(&bills).Error
		if err != nil {
			return nil, decimal.Zero, 0, err
		}

		purchases := decimal.Zero
		for _, b := range bills {
			purchases = purchases.Add(b.TotalAmount)
		}

		if customer.OutstandingBalance.IsPositive() {
			pendingCount++
		}
		totalOutstanding = totalOutstanding.Add(customer.OutstandingBalance)

		entries = append(entries, LendingEntry{
			Customer:           customer,
			TotalBills:         len(bills),
			TotalPurchases:     purchases,
			OutstandingBalance: customer.OutstandingBalance,
		})
	}

	return entries, totalOutstanding, pendingCount, nil
}

// --- GET: /api/reports/activity ---
// Recent bills, payments and price updates in one feed.
func GetActivityReport(c *gin.Context) {
	var bills []models.Bill
	if err := database.DB.Preload("Customer").Order("date desc").Limit(20).
		Find(&bills).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bills"})
		return
	}

	var payments []models.Payment
	if err := database.DB.Preload("Customer").Order("date desc").Limit(20).
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	var products []models.Product
	if err := database.DB.Order("updated_at desc").Limit(20).
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bills":    bills,
		"payments": payments,
		"products": products,
	})
}

// --- POST: /api/reports/recompute-balances ---
// Owner-only maintenance sweep: re-derives every cached balance from the
// bills. Normally a no-op; exists to repair drift after manual DB edits.
func RecomputeAllBalances(c *gin.Context) {
	var customers []models.Customer
	if err := database.DB.Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	updated := 0
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		for _, customer := range customers {
			balance, err := ledger.RecomputeBalance(tx, customer.ID)
			if err != nil {
				return err
			}
			if !balance.Equal(customer.OutstandingBalance) {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute balances"})
		return
	}

	cache.Invalidate(c.Request.Context(), dashboardCacheKey)
	c.JSON(http.StatusOK, gin.H{
		"message": "Balances recomputed",
		"checked": len(customers),
		"updated": updated,
	})
}
