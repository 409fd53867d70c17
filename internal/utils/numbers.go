package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateBillNumber builds a human-readable unique bill number,
// e.g. "BILL-20260823-154501". The uniqueIndex on bill_number backstops
// the rare same-second collision.
func GenerateBillNumber(now time.Time) string {
	return fmt.Sprintf("BILL-%s", now.Format("20060102-150405"))
}

// GenerateReceiptNumber issues the receipt id printed on payment slips.
func GenerateReceiptNumber() string {
	return "RCPT-" + uuid.NewString()
}
