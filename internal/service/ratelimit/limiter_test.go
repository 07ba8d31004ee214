package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowAndRefill(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a", 2, 1))
	assert.True(t, l.Allow("a", 2, 1))
	assert.False(t, l.Allow("a", 2, 1))
	// other keys have their own bucket
	assert.True(t, l.Allow("b", 2, 1))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a", 2, 1))
	assert.False(t, l.Allow("a", 2, 1))
}

func TestLimiter_Sweep(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	l.Allow("old", 1, 1)
	now = now.Add(10 * time.Minute)
	l.Allow("new", 1, 1)

	assert.Equal(t, 1, l.Sweep(5*time.Minute))
	assert.Len(t, l.m, 1)
}
