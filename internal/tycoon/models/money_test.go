package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompanyAccrue(t *testing.T) {
	tests := []struct {
		name      string
		amounts   []string
		wantCash  string
		wantCarry string
	}{
		{
			name:      "sub-cent amounts add up",
			amounts:   []string{"0.004", "0.004", "0.004"},
			wantCash:  "100.01",
			wantCarry: "0.002",
		},
		{
			name:      "whole cents pass through",
			amounts:   []string{"1.25"},
			wantCash:  "101.25",
			wantCarry: "0",
		},
		{
			name:      "negative amounts debit",
			amounts:   []string{"-0.006", "-0.006"},
			wantCash:  "99.99",
			wantCarry: "-0.002",
		},
		{
			name:      "opposite signs cancel in the carry",
			amounts:   []string{"0.007", "-0.004"},
			wantCash:  "100.00",
			wantCarry: "0.003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Company{Cash: decimal.NewFromInt(100)}
			for _, a := range tt.amounts {
				c.Accrue(decimal.RequireFromString(a))
			}
			assert.Equal(t, tt.wantCash, c.Cash.StringFixed(2))
			assert.True(t, c.RevenueCarry.Equal(decimal.RequireFromString(tt.wantCarry)), c.RevenueCarry.String())
		})
	}
}
