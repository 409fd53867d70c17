package handlers

import (
	"net/http"
	"strconv"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- GET: List customers, optionally filtered by ?search= ---
func GetCustomers(c *gin.Context) {
	var customers []models.Customer
	query := database.DB.Order("name asc")

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ? OR address LIKE ?", like, like, like)
	}

	if err := query.Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	c.JSON(http.StatusOK, customers)
}

type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
}

// --- POST: Add a customer. Phone is the unique handle. ---
func AddCustomer(c *gin.Context) {
	var input CustomerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	customer := models.Customer{
		Name:      input.Name,
		Phone:     input.Phone,
		Address:   input.Address,
		CreatedBy: c.GetUint("userID"),
	}

	if err := database.DB.Create(&customer).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A customer with this phone number already exists"})
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// CustomerSearchResult is the compact shape the billing screen's
// autocomplete consumes.
type CustomerSearchResult struct {
	ID                 uint            `json:"id"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone"`
	Address            string          `json:"address"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	LastPurchase       string          `json:"last_purchase"`
}

// --- GET: /api/customers/search?q= ---
func SearchCustomers(c *gin.Context) {
	q := c.Query("q")
	like := "%" + q + "%"

	var customers []models.Customer
	err := database.DB.
		Where("name LIKE ? OR phone LIKE ? OR address LIKE ?", like, like, like).
		Limit(10).
		Find(&customers).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search customers"})
		return
	}

	results := make([]CustomerSearchResult, 0, len(customers))
	for _, customer := range customers {
		lastPurchase := "Never"
		var lastBill models.Bill
		err := database.DB.Where("customer_id = ?", customer.ID).
			Order("date desc").First(&lastBill).Error
		if err == nil {
			lastPurchase = lastBill.Date.Format("02 Jan 2006")
		}

		results = append(results, CustomerSearchResult{
			ID:                 customer.ID,
			Name:               customer.Name,
			Phone:              customer.Phone,
			Address:            customer.Address,
			OutstandingBalance: customer.OutstandingBalance,
			LastPurchase:       lastPurchase,
		})
	}

	c.JSON(http.StatusOK, results)
}

// --- GET: /api/customers/:id ---
// Full account view: bills, payments, lifetime totals.
func GetCustomerDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	var customer models.Customer
	if err := database.DB.First(&customer, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	var bills []models.Bill
	if err := database.DB.Preload("Items").Preload("Items.Product").
		Where("customer_id = ?", customer.ID).
		Order("date desc").Find(&bills).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bills"})
		return
	}

	var payments []models.Payment
	if err := database.DB.Where("customer_id = ?", customer.ID).
		Order("date desc").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	totalPurchases := decimal.Zero
	for _, b := range bills {
		totalPurchases = totalPurchases.Add(b.TotalAmount)
	}
	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	c.JSON(http.StatusOK, gin.H{
		"customer":            customer,
		"bills":               bills,
		"payments":            payments,
		"total_bills":         len(bills),
		"total_purchases":     totalPurchases,
		"total_paid":          totalPaid,
		"outstanding_balance": customer.OutstandingBalance,
	})
}
