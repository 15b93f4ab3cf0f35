package redisx

import "fmt"

const ns = "nibog:v1"

// KeyIntent holds the staged TransactionIntent for a checkout attempt.
func KeyIntent(transactionID string) string {
	return fmt.Sprintf("%s:intent:%s", ns, transactionID)
}

func KeyIdemFinalize(transactionID string) string {
	return fmt.Sprintf("%s:idem:finalize:%s", ns, transactionID)
}

func KeyIdemInitiate(idemKey string) string {
	return fmt.Sprintf("%s:idem:initiate:%s", ns, idemKey)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyTicket(bookingID int64) string {
	return fmt.Sprintf("%s:ticket:%d", ns, bookingID)
}

func ChannelBookingConfirmed() string {
	return ns + ":bookings:confirmed"
}
