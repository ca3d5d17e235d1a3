package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPriceHistoryCovers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	closed := PriceHistory{ID: uuid.New(), Start: start, End: &end}
	assert.False(t, closed.Active())
	assert.True(t, closed.Covers(start))
	assert.True(t, closed.Covers(start.Add(59*time.Minute)))
	assert.False(t, closed.Covers(end))
	assert.False(t, closed.Covers(start.Add(-time.Second)))

	open := PriceHistory{ID: uuid.New(), Start: end}
	assert.True(t, open.Active())
	assert.True(t, open.Covers(end.Add(24*time.Hour)))
}

func TestCartContains(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	cart := Cart{ProductIDs: []uuid.UUID{p1}}

	assert.True(t, cart.Contains(p1))
	assert.False(t, cart.Contains(p2))
}

func TestPaymentMethod(t *testing.T) {
	assert.True(t, PaymentPix.Valid())
	assert.True(t, PaymentDebit.Valid())
	assert.False(t, PaymentMethod(4).Valid())
	assert.Equal(t, "Credit", PaymentCredit.String())
}

func TestCustomerRole(t *testing.T) {
	assert.Equal(t, RoleStaff, (&Customer{IsStaff: true}).Role())
	assert.Equal(t, RoleCustomer, (&Customer{}).Role())
}
