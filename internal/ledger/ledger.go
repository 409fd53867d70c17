// Package ledger holds the bill/payment reconciliation rules: deriving a
// bill's payment status, applying payments (linked or distributed),
// reversing them, and keeping each customer's cached outstanding balance in
// step. Handlers never touch PaidAmount or OutstandingBalance directly.
package ledger

import (
	"errors"
	"log/slog"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrBillNotFound      = errors.New("bill not found")
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
	ErrBillMismatch      = errors.New("bill does not belong to this customer")
)

// Derive computes the remaining amount and payment status for a bill.
// remaining = max(total - paid, 0); pending iff nothing paid, paid iff
// paid covers the total, partial otherwise.
func Derive(total, paid decimal.Decimal) (decimal.Decimal, string) {
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	switch {
	case paid.IsZero():
		return remaining, models.StatusPending
	case paid.GreaterThanOrEqual(total):
		return decimal.Zero, models.StatusPaid
	default:
		return remaining, models.StatusPartial
	}
}

// Recalculate refreshes the derived fields on a bill in memory.
func Recalculate(b *models.Bill) {
	b.RemainingAmount, b.PaymentStatus = Derive(b.TotalAmount, b.PaidAmount)
}

// SaveBill persists a bill with its derived fields recomputed, then
// refreshes the owning customer's cached balance. Every bill write in the
// system goes through here so the invariants hold after each save.
func SaveBill(tx *gorm.DB, b *models.Bill) error {
	Recalculate(b)
	if err := tx.Save(b).Error; err != nil {
		return err
	}
	_, err := RecomputeBalance(tx, b.CustomerID)
	return err
}

// Apply records a payment and works it into the ledger inside one
// transaction. A linked payment goes onto its bill, capped at the bill's
// total; an unlinked payment is spread across the customer's open bills
// oldest-first. The returned amount is whatever could not be allocated.
func Apply(db *gorm.DB, p *models.Payment) (decimal.Decimal, error) {
	if !p.Amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}

	unallocated := decimal.Zero
	err := db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, p.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}

		var err error
		if p.BillID != nil {
			unallocated, err = applyToBill(tx, p)
		} else {
			unallocated, err = distribute(tx, p)
		}
		if err != nil {
			return err
		}

		_, err = RecomputeBalance(tx, p.CustomerID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	if unallocated.IsPositive() {
		slog.Warn("payment not fully allocated",
			"payment_id", p.ID,
			"customer_id", p.CustomerID,
			"unallocated", unallocated)
	}
	return unallocated, nil
}

// applyToBill credits a payment against its linked bill under a row lock.
// Only min(amount, remaining) is applied; the allocation row records the
// applied portion so reversal restores the exact prior paid amount.
func applyToBill(tx *gorm.DB, p *models.Payment) (decimal.Decimal, error) {
	var bill models.Bill
	err := database.ForUpdate(tx).First(&bill, *p.BillID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrBillNotFound
		}
		return decimal.Zero, err
	}
	if bill.CustomerID != p.CustomerID {
		return decimal.Zero, ErrBillMismatch
	}

	applied := decimal.Min(p.Amount, bill.RemainingAmount)
	if applied.IsPositive() {
		bill.PaidAmount = bill.PaidAmount.Add(applied)
		Recalculate(&bill)
		if err := tx.Save(&bill).Error; err != nil {
			return decimal.Zero, err
		}
		alloc := models.PaymentAllocation{PaymentID: p.ID, BillID: bill.ID, Amount: applied}
		if err := tx.Create(&alloc).Error; err != nil {
			return decimal.Zero, err
		}
	}

	return p.Amount.Sub(applied), nil
}

// distribute spreads an unlinked payment across the customer's pending and
// partial bills, oldest first, until the amount runs out or the bills do.
func distribute(tx *gorm.DB, p *models.Payment) (decimal.Decimal, error) {
	var bills []models.Bill
	err := database.ForUpdate(tx).
		Where("customer_id = ? AND payment_status IN ?",
			p.CustomerID, []string{models.StatusPending, models.StatusPartial}).
		Order("date asc").
		Find(&bills).Error
	if err != nil {
		return decimal.Zero, err
	}

	left := p.Amount
	for i := range bills {
		if !left.IsPositive() {
			break
		}
		bill := &bills[i]

		slice := decimal.Min(left, bill.RemainingAmount)
		if !slice.IsPositive() {
			continue
		}

		bill.PaidAmount = bill.PaidAmount.Add(slice)
		Recalculate(bill)
		if err := tx.Save(bill).Error; err != nil {
			return decimal.Zero, err
		}

		alloc := models.PaymentAllocation{PaymentID: p.ID, BillID: bill.ID, Amount: slice}
		if err := tx.Create(&alloc).Error; err != nil {
			return decimal.Zero, err
		}

		left = left.Sub(slice)
	}

	return left, nil
}

// Reverse deletes a payment and undoes its effect on the ledger by
// replaying its allocation rows: each touched bill gives back exactly what
// it received, floored at zero paid.
func Reverse(db *gorm.DB, paymentID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Preload("Allocations").First(&payment, paymentID).Error
		if err != nil {
			return err
		}

		for _, alloc := range payment.Allocations {
			var bill models.Bill
			err := database.ForUpdate(tx).First(&bill, alloc.BillID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // bill deleted since; nothing to give back
				}
				return err
			}

			bill.PaidAmount = bill.PaidAmount.Sub(alloc.Amount)
			if bill.PaidAmount.IsNegative() {
				bill.PaidAmount = decimal.Zero
			}
			Recalculate(&bill)
			if err := tx.Save(&bill).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("payment_id = ?", payment.ID).
			Delete(&models.PaymentAllocation{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}

		_, err = RecomputeBalance(tx, payment.CustomerID)
		return err
	})
}

// RecomputeBalance recalculates a customer's cached outstanding balance as
// the sum of RemainingAmount over ALL of their bills. Paid bills contribute
// zero, so the total always equals the sum over open bills while staying
// robust to over-payment clamping. The sum runs in Go so the decimal
// arithmetic does not depend on the SQL driver.
func RecomputeBalance(tx *gorm.DB, customerID uint) (decimal.Decimal, error) {
	var bills []models.Bill
	if err := tx.Select("remaining_amount").
		Where("customer_id = ?", customerID).
		Find(&bills).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.RemainingAmount)
	}

	var customer models.Customer
	if err := tx.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrCustomerNotFound
		}
		return decimal.Zero, err
	}

	// Only write when the cached value drifted.
	if !customer.OutstandingBalance.Equal(total) {
		err := tx.Model(&customer).Update("outstanding_balance", total).Error
		if err != nil {
			return decimal.Zero, err
		}
	}

	return total, nil
}
