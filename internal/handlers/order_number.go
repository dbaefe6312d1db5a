package handlers

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Canonical order number scheme: FBX-<yyyymmdd>-<6 alphanumeric>, e.g.
// FBX-20260829-X7K2P9. The date component keeps numbers sortable for
// operational triage; the random suffix gives 36^6 combinations per day.
// Uniqueness is still enforced by the orderNumber_unique index, and the
// creation path retries on a duplicate.
const (
	orderNumberPrefix    = "FBX"
	orderNumberSuffixLen = 6
	orderNumberAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func generateOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, orderNumberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.Format("20060102"), buf), nil
}
