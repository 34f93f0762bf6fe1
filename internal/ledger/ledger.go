// Package ledger reconciles a cash shift against the order ledger. Every
// function is pure; callers supply sales already aggregated per payment method.
package ledger

import (
	"strings"
	"time"

	"restopos/internal/domain"
)

// FoldPaymentMethod maps legacy values onto the current payment methods.
// "card" predates the credit/debit distinction and is counted as credit_card.
func FoldPaymentMethod(method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == domain.PaymentCard {
		return domain.PaymentCreditCard
	}
	return method
}

// Summarize builds the per-method sales summary. Methods outside the summary
// buckets still count toward the total.
func Summarize(byMethod map[string]int64) domain.SalesSummary {
	var summary domain.SalesSummary
	for method, amount := range byMethod {
		switch FoldPaymentMethod(method) {
		case domain.PaymentCash:
			summary.CashCents += amount
		case domain.PaymentCreditCard:
			summary.CreditCardCents += amount
		case domain.PaymentDebitCard:
			summary.DebitCardCents += amount
		case domain.PaymentTransfer:
			summary.TransferCents += amount
		}
		summary.TotalCents += amount
	}
	return summary
}

func Manual(movements []domain.CashMovement) domain.ManualStats {
	var stats domain.ManualStats
	for _, movement := range movements {
		switch movement.Type {
		case domain.MovementIn:
			stats.InsCents += movement.AmountCents
		case domain.MovementOut:
			stats.OutsCents += movement.AmountCents
		}
	}
	return stats
}

// ExpectedCash is initial float + cash sales + manual ins - manual outs.
func ExpectedCash(shift domain.CashShift, summary domain.SalesSummary) int64 {
	manual := Manual(shift.Movements)
	return shift.InitialCashCents + summary.CashCents + manual.InsCents - manual.OutsCents
}

func Status(shift *domain.CashShift, byMethod map[string]int64) domain.ShiftStatus {
	if shift == nil || shift.Status != domain.ShiftStatusOpen {
		return domain.ShiftStatus{Status: domain.ShiftStatusClosed}
	}
	summary := Summarize(byMethod)
	manual := Manual(shift.Movements)
	cp := *shift
	return domain.ShiftStatus{
		Status:                   domain.ShiftStatusOpen,
		Shift:                    &cp,
		SalesSummary:             &summary,
		ManualStats:              &manual,
		CurrentCashInDrawerCents: ExpectedCash(*shift, summary),
	}
}

// Close seals a shift. The expected figure is always recomputed from the
// movements and sales passed in, never taken from the caller.
func Close(shift domain.CashShift, byMethod map[string]int64, actualCents int64, closedBy string, at time.Time) domain.CashShift {
	expected := ExpectedCash(shift, Summarize(byMethod))
	end := at.UTC()

	closed := shift
	closed.Movements = append([]domain.CashMovement(nil), shift.Movements...)
	closed.Status = domain.ShiftStatusClosed
	closed.ClosedBy = closedBy
	closed.EndTime = &end
	closed.FinalCashExpectedCents = expected
	closed.FinalCashActualCents = actualCents
	closed.DifferenceCents = actualCents - expected
	return closed
}
