package service

import (
	"fmt"
	"time"
)

// Short human-readable codes handed to customers and staff. Hex of the
// nanosecond clock keeps them unique enough at this scale; the DB
// unique index is the real guarantee.
func newOrderCode(now time.Time) string {
	return fmt.Sprintf("ORD-%08X", now.UnixNano()%0x100000000)
}

func newPaymentCode(now time.Time) string {
	return fmt.Sprintf("PAY-%08X", now.UnixNano()%0x100000000)
}
