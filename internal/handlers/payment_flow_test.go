package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/handlers"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/products", handlers.AddProduct)
		api.POST("/customers", handlers.AddCustomer)
		api.GET("/customers/:id", handlers.GetCustomerDetail)
		api.POST("/bills", handlers.CreateBill)
		api.GET("/bills/:id", handlers.GetBill)
		api.DELETE("/bills/:id", handlers.DeleteBill)
		api.POST("/payments", handlers.ReceivePayment)
		api.DELETE("/payments/:id", handlers.DeletePayment)
		api.GET("/reports/dashboard", handlers.GetDashboard)
		api.GET("/reports/lending", handlers.GetLendingReport)
		api.GET("/reports/lending/export", handlers.ExportLendingReport)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBill(t *testing.T, w *httptest.ResponseRecorder) models.Bill {
	t.Helper()
	var bill models.Bill
	if err := json.Unmarshal(w.Body.Bytes(), &bill); err != nil {
		t.Fatalf("decode bill: %v (body: %s)", err, w.Body.String())
	}
	return bill
}

func TestBillAndPaymentFlow(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Cement", "category": "Construction",
		"market_price": "320.00", "current_stock": 100,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add product: %d %s", w.Code, w.Body.String())
	}

	// Two valid lines plus two malformed ones that must be skipped.
	w = doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Sunita Devi",
		"customer_phone": "9812345678",
		"items": []gin.H{
			{"product_id": 1, "quantity": 2},
			{"product_id": 999, "quantity": 3},
			{"product_id": 1, "quantity": 0},
			{"product_id": 1, "quantity": 1},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create bill: %d %s", w.Code, w.Body.String())
	}
	bill := decodeBill(t, w)

	if !bill.TotalAmount.Equal(decimal.RequireFromString("960")) {
		t.Fatalf("bill total = %s, want 960 (2x320 + 1x320)", bill.TotalAmount)
	}
	if bill.PaymentStatus != models.StatusPending {
		t.Fatalf("fresh bill status = %s, want pending", bill.PaymentStatus)
	}
	if len(bill.Items) != 2 {
		t.Fatalf("bill items = %d, want 2 (malformed lines skipped)", len(bill.Items))
	}

	var product models.Product
	database.DB.First(&product, 1)
	if product.CurrentStock != 97 {
		t.Fatalf("stock = %d, want 97", product.CurrentStock)
	}

	// Pay part of it against the bill.
	w = doJSON(t, r, http.MethodPost, "/api/payments", gin.H{
		"customer_id": bill.CustomerID, "bill_id": bill.ID,
		"amount": "460", "payment_method": "cash",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("receive payment: %d %s", w.Code, w.Body.String())
	}
	var payResp struct {
		Payment     models.Payment  `json:"payment"`
		Unallocated decimal.Decimal `json:"unallocated_amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payResp); err != nil {
		t.Fatalf("decode payment response: %v", err)
	}
	if !payResp.Unallocated.IsZero() {
		t.Fatalf("unallocated = %s, want 0", payResp.Unallocated)
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/bills/%d", bill.ID), nil)
	got := decodeBill(t, w)
	if got.PaymentStatus != models.StatusPartial || !got.RemainingAmount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("bill after payment: status=%s remaining=%s, want partial/500",
			got.PaymentStatus, got.RemainingAmount)
	}

	// Deleting the payment puts everything back.
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/payments/%d", payResp.Payment.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete payment: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/bills/%d", bill.ID), nil)
	got = decodeBill(t, w)
	if got.PaymentStatus != models.StatusPending || !got.PaidAmount.IsZero() {
		t.Fatalf("bill after reversal: status=%s paid=%s, want pending/0",
			got.PaymentStatus, got.PaidAmount)
	}

	var customer models.Customer
	database.DB.First(&customer, bill.CustomerID)
	if !customer.OutstandingBalance.Equal(decimal.RequireFromString("960")) {
		t.Fatalf("balance = %s, want 960", customer.OutstandingBalance)
	}
}

func TestCreateBillWithUpfrontPayment(t *testing.T) {
	r := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Urea", "category": "Fertilizer",
		"market_price": "500.00", "current_stock": 10,
	})

	w := doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Amit Sharma",
		"customer_phone": "9811111111",
		"items":          []gin.H{{"product_id": 1, "quantity": 2}},
		"paid_amount":    "1000",
		"payment_method": "upi",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create bill: %d %s", w.Code, w.Body.String())
	}
	bill := decodeBill(t, w)
	if bill.PaymentStatus != models.StatusPaid || !bill.RemainingAmount.IsZero() {
		t.Fatalf("bill status=%s remaining=%s, want paid/0", bill.PaymentStatus, bill.RemainingAmount)
	}

	var customer models.Customer
	database.DB.First(&customer, bill.CustomerID)
	if !customer.OutstandingBalance.IsZero() {
		t.Fatalf("balance = %s, want 0", customer.OutstandingBalance)
	}
}

func TestCreateBillRejectsEmptyAndOverdraft(t *testing.T) {
	r := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Seed Bag", "category": "Seeds",
		"market_price": "150.00", "current_stock": 1,
	})

	// All lines malformed -> nothing to bill.
	w := doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Nobody",
		"customer_phone": "9800000000",
		"items":          []gin.H{{"product_id": 42, "quantity": 1}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty bill accepted: %d", w.Code)
	}

	// More than in stock -> rejected outright.
	w = doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Greedy",
		"customer_phone": "9800000001",
		"items":          []gin.H{{"product_id": 1, "quantity": 5}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overdraft bill accepted: %d", w.Code)
	}
}

func TestDuplicateCustomerPhone(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/customers", gin.H{
		"name": "First", "phone": "9799999999", "address": "Village A",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add customer: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/customers", gin.H{
		"name": "Second", "phone": "9799999999", "address": "Village B",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate phone accepted: %d", w.Code)
	}
}

func TestLendingReportAndExport(t *testing.T) {
	r := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Pipe", "category": "Irrigation",
		"market_price": "100.00", "current_stock": 50,
	})
	doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Debtor",
		"customer_phone": "9788888888",
		"items":          []gin.H{{"product_id": 1, "quantity": 10}},
	})

	w := doJSON(t, r, http.MethodGet, "/api/reports/lending?payment_status=pending", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lending report: %d %s", w.Code, w.Body.String())
	}
	var report struct {
		TotalCustomers   int             `json:"total_customers"`
		TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalCustomers != 1 || !report.TotalOutstanding.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("report = %+v, want 1 customer owing 1000", report)
	}

	w = doJSON(t, r, http.MethodGet, "/api/reports/lending/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("export content-type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("export body is empty")
	}
}

func TestDashboardStats(t *testing.T) {
	r := setupRouter(t)

	doJSON(t, r, http.MethodPost, "/api/products", gin.H{
		"name": "Rope", "category": "Hardware",
		"market_price": "50.00", "current_stock": 20,
	})
	doJSON(t, r, http.MethodPost, "/api/bills", gin.H{
		"customer_name":  "Dash",
		"customer_phone": "9777777777",
		"items":          []gin.H{{"product_id": 1, "quantity": 4}},
	})

	w := doJSON(t, r, http.MethodGet, "/api/reports/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w.Code, w.Body.String())
	}
	var stats database.DashboardStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalProducts != 1 || stats.TotalCustomers != 1 || stats.BillsToday != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.TotalOutstanding.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("outstanding = %s, want 200", stats.TotalOutstanding)
	}
}
