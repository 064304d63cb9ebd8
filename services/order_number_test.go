package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderNumber(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 6, 10, 14, 35, 7, 0, ist)

	assert.Equal(t, "ORD202406100905070042", GenerateOrderNumber(now, 42))
	assert.Equal(t, "ORD202406100905070000", GenerateOrderNumber(now, 10000))
	assert.Equal(t, GenerateOrderNumber(now, 7), GenerateOrderNumber(now, 7))
	assert.Len(t, RandomOrderNumber(now), len("ORD")+14+4)
}
