package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPenaltyDailyRate is the late-payment rate applied per full day overdue (0.05%).
var DefaultPenaltyDailyRate = decimal.RequireFromString("0.0005")

// DefaultPaymentGracePeriod is the time a winner has to pay the balance after settlement.
const DefaultPaymentGracePeriod = 30 * 24 * time.Hour

// AmountDue returns what the winner still owes after the deposit is applied.
func AmountDue(finalPrice, deposit decimal.Decimal) decimal.Decimal {
	due := finalPrice.Sub(deposit)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Remainder returns the unpaid part of TotalAmount, never negative.
func (p *WinningPayment) Remainder() decimal.Decimal {
	remainder := p.TotalAmount.Sub(p.PaidAmount)
	if remainder.IsNegative() {
		return decimal.Zero
	}
	return remainder
}

// OverdueDays returns the number of full days elapsed since dueDate.
func OverdueDays(dueDate, now time.Time) int64 {
	if !now.After(dueDate) {
		return 0
	}
	return int64(now.Sub(dueDate) / (24 * time.Hour))
}

// ComputePenalty applies rate to remainder once per overdue day.
// Uses decimal arithmetic and rounds to fen.
func ComputePenalty(remainder, rate decimal.Decimal, days int64) decimal.Decimal {
	if days <= 0 || !remainder.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return remainder.Mul(rate).Mul(decimal.NewFromInt(days)).Round(monetaryPrecision)
}

// BaseStatus derives the stored payment status from amounts alone.
func BaseStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// EvaluatePayment returns a copy of p with Status, Penalty and AmountOwed derived at now.
//
// Overdue is evaluated here rather than stored so that repeated reads never accrue
// the penalty twice.
func EvaluatePayment(p WinningPayment, now time.Time, rate decimal.Decimal) WinningPayment {
	p.Status = BaseStatus(p.TotalAmount, p.PaidAmount)
	p.Penalty = decimal.Zero

	if p.Status != PaymentPaid && now.After(p.DueDate) {
		p.Status = PaymentOverdue
		p.Penalty = ComputePenalty(p.Remainder(), rate, OverdueDays(p.DueDate, now))
	}

	p.AmountOwed = p.Remainder().Add(p.Penalty)
	return p
}
