package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "non-digit %q in code", c)
	}

	other, err := GenerateOTP(6)
	require.NoError(t, err)
	// 1-in-a-million collision; a repeat here means rand is broken
	assert.NotEqual(t, code, other)
}

func TestHashOTP_RoundTrip(t *testing.T) {
	hash, err := HashOTP("482913")
	require.NoError(t, err)
	assert.NotEqual(t, "482913", hash)

	assert.True(t, CheckOTP(hash, "482913"))
	assert.False(t, CheckOTP(hash, "482914"))
	assert.False(t, CheckOTP("not-a-hash", "482913"))
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, BreakerOpen, cb.State())

	called := false
	err := cb.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	boom := errors.New("boom")

	cb.Do(func() error { return boom })
	cb.Do(func() error { return boom })
	require.NoError(t, cb.Do(func() error { return nil }))
	cb.Do(func() error { return boom })
	cb.Do(func() error { return boom })

	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_RecoversAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 20*time.Millisecond)
	boom := errors.New("boom")

	cb.Do(func() error { return boom })
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, cb.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 20*time.Millisecond)
	boom := errors.New("boom")

	cb.Do(func() error { return boom })
	time.Sleep(30 * time.Millisecond)

	assert.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	assert.Equal(t, BreakerOpen, cb.State())

	assert.ErrorIs(t, cb.Do(func() error { return nil }), ErrCircuitOpen)
}
