package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBudget_BurstThenDeny(t *testing.T) {
	b := NewBudget(time.Hour, 2)
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "burst spent, next ask within the interval must be denied")
}

func TestBudget_MinimumBurst(t *testing.T) {
	b := NewBudget(time.Hour, 0)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}

func TestBudget_Refills(t *testing.T) {
	b := NewBudget(10*time.Millisecond, 1)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
}

func TestUnlimited(t *testing.T) {
	b := Unlimited()
	for i := 0; i < 100; i++ {
		assert.True(t, b.Allow())
	}
}
