package core

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestAmountDue(t *testing.T) {
	check.Equal(t, "7200", AmountDue(decimal.NewFromInt(8750), decimal.NewFromInt(1550)).String())
	check.True(t, AmountDue(decimal.NewFromInt(100), decimal.NewFromInt(200)).IsZero())
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected int64
	}{
		{"before due date", due.Add(-time.Hour), 0},
		{"exactly at due date", due, 0},
		{"part of first day", due.Add(23 * time.Hour), 0},
		{"one full day", due.Add(24 * time.Hour), 1},
		{"ten and a half days", due.Add(10*24*time.Hour + 12*time.Hour), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.expected, OverdueDays(due, tt.now))
		})
	}
}

func TestComputePenalty(t *testing.T) {
	tests := []struct {
		name      string
		remainder string
		rate      string
		days      int64
		expected  string
	}{
		{"no days", "7200", "0.0005", 0, "0"},
		{"one day", "7200", "0.0005", 1, "3.6"},
		{"ten days", "7200", "0.0005", 10, "36"},
		{"rounds to fen", "1000.01", "0.0005", 3, "1.5"},
		{"nothing owed", "0", "0.0005", 10, "0"},
		{"zero rate", "7200", "0", 10, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePenalty(decimal.RequireFromString(tt.remainder), decimal.RequireFromString(tt.rate), tt.days)
			check.Equal(t, tt.expected, got.String())
		})
	}
}

func TestEvaluatePayment(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	base := WinningPayment{
		TotalAmount: decimal.NewFromInt(7200),
		PaidAmount:  decimal.Zero,
		DueDate:     due,
		Status:      PaymentPending,
	}

	t.Run("pending before due", func(t *testing.T) {
		got := EvaluatePayment(base, due.Add(-time.Hour), DefaultPenaltyDailyRate)
		check.Equal(t, PaymentPending, got.Status)
		check.True(t, got.Penalty.IsZero())
		check.Equal(t, "7200", got.AmountOwed.String())
	})

	t.Run("partial before due", func(t *testing.T) {
		p := base
		p.PaidAmount = decimal.NewFromInt(2000)
		got := EvaluatePayment(p, due.Add(-time.Hour), DefaultPenaltyDailyRate)
		check.Equal(t, PaymentPartial, got.Status)
		check.Equal(t, "5200", got.AmountOwed.String())
	})

	t.Run("overdue accrues on remainder", func(t *testing.T) {
		p := base
		p.PaidAmount = decimal.NewFromInt(2000)
		got := EvaluatePayment(p, due.Add(4*24*time.Hour), DefaultPenaltyDailyRate)
		check.Equal(t, PaymentOverdue, got.Status)
		check.Equal(t, "10.4", got.Penalty.String())
		check.Equal(t, "5210.4", got.AmountOwed.String())
	})

	t.Run("repeated evaluation does not double accrue", func(t *testing.T) {
		now := due.Add(4 * 24 * time.Hour)
		first := EvaluatePayment(base, now, DefaultPenaltyDailyRate)
		second := EvaluatePayment(first, now, DefaultPenaltyDailyRate)
		check.Equal(t, first.Penalty.String(), second.Penalty.String())
		check.Equal(t, "14.4", second.Penalty.String())
	})

	t.Run("paid is never overdue", func(t *testing.T) {
		p := base
		p.PaidAmount = decimal.NewFromInt(7200)
		got := EvaluatePayment(p, due.Add(40*24*time.Hour), DefaultPenaltyDailyRate)
		check.Equal(t, PaymentPaid, got.Status)
		check.True(t, got.AmountOwed.IsZero())
	})
}
