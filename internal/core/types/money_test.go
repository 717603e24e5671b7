package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("19.99")
	require.NoError(t, err)
	assert.Equal(t, "19.99", m.String())

	_, err = NewMoneyFromString("not-a-number")
	assert.Error(t, err)
}

func TestMustMoney_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustMoney("abc") })
	assert.NotPanics(t, func() { MustMoney("0.1") })
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.004", "1"},
		{"1.005", "1.01"},
		{"1.995", "2"},
		{"7.9992", "8"},
		{"-1.005", "-1.01"},
		{"10", "10"},
	}

	for _, tt := range tests {
		got := RoundCurrency(MustMoney(tt.in))
		assert.True(t, got.Equal(MustMoney(tt.want)), "RoundCurrency(%s) = %s, want %s", tt.in, got, tt.want)
	}
}

func TestApplyPercent(t *testing.T) {
	tests := []struct {
		amount  string
		percent string
		want    string
	}{
		{"100", "5", "5"},
		{"33.33", "5", "1.67"},
		{"99.99", "8", "8"},
		{"200", "0", "0"},
		{"0", "50", "0"},
	}

	for _, tt := range tests {
		got := ApplyPercent(MustMoney(tt.amount), MustMoney(tt.percent))
		assert.True(t, got.Equal(MustMoney(tt.want)), "ApplyPercent(%s, %s) = %s, want %s", tt.amount, tt.percent, got, tt.want)
	}
}

func TestClampNonNegative(t *testing.T) {
	assert.True(t, ClampNonNegative(MustMoney("-0.01")).IsZero())
	assert.True(t, ClampNonNegative(MustMoney("0")).IsZero())
	assert.True(t, ClampNonNegative(MustMoney("5")).Equal(MustMoney("5")))
}
