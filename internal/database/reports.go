package database

import (
	"time"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"github.com/shopspring/decimal"
)

// DashboardStats is the at-a-glance summary on the landing screen.
type DashboardStats struct {
	TotalProducts    int64           `json:"total_products"`
	TotalCustomers   int64           `json:"total_customers"`
	BillsToday       int64           `json:"bills_today"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// GetDashboardStats counts the core entities and totals every customer's
// cached outstanding balance.
func GetDashboardStats(now time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	if err := DB.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := DB.Model(&models.Customer{}).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := DB.Model(&models.Bill{}).
		Where("date >= ? AND date < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&stats.BillsToday).Error
	if err != nil {
		return nil, err
	}

	// Summed in Go for the same driver-independence reason as the ledger.
	var customers []models.Customer
	if err := DB.Select("outstanding_balance").Find(&customers).Error; err != nil {
		return nil, err
	}
	stats.TotalOutstanding = decimal.Zero
	for _, c := range customers {
		stats.TotalOutstanding = stats.TotalOutstanding.Add(c.OutstandingBalance)
	}

	return &stats, nil
}
