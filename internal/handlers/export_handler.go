package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// --- GET: /api/reports/lending/export ---
// Streams the lending report as an XLSX workbook, honoring the same
// search/status filters as the JSON endpoint.
func ExportLendingReport(c *gin.Context) {
	entries, totalOutstanding, _, err := buildLendingReport(
		c.Query("search"), c.Query("payment_status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build lending report"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Outstanding Balances"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Customer", "Phone", "Address", "Bills", "Total Purchases", "Outstanding"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, entry := range entries {
		values := []interface{}{
			entry.Customer.Name,
			entry.Customer.Phone,
			entry.Customer.Address,
			entry.TotalBills,
			entry.TotalPurchases.InexactFloat64(),
			entry.OutstandingBalance.InexactFloat64(),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	f.SetCellValue(sheet, fmt.Sprintf("E%d", row+1), "Total Outstanding")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row+1), totalOutstanding.InexactFloat64())

	filename := "lending-report-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
