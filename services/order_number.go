package services

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateOrderNumber renders "ORD" + UTC yyyyMMddHHmmss + a 4-digit suffix.
func GenerateOrderNumber(now time.Time, seq int) string {
	if seq < 0 {
		seq = -seq
	}
	return fmt.Sprintf("ORD%s%04d", now.UTC().Format("20060102150405"), seq%10000)
}

// RandomOrderNumber uses a random suffix; the unique index catches the rare clash.
func RandomOrderNumber(now time.Time) string {
	return GenerateOrderNumber(now, rand.Intn(10000))
}
