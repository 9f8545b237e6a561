package ledger

import (
	"math"
	"time"

	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/shishobooks/circulation/pkg/settings"
)

// CalculateFine returns the fine owed for a loan due on dueDate and returned
// on returnDate. Only whole calendar days after the due date count. The grace
// period is a threshold: once the loan is more than gracePeriod days late,
// every overdue day is billed, up to MaxFine.
func CalculateFine(rule models.FineRule, dueDate, returnDate time.Time) float64 {
	daysOverdue := clock.DaysBetween(dueDate, returnDate)
	if daysOverdue <= 0 || daysOverdue <= rule.GracePeriod {
		return 0
	}
	fine := math.Min(float64(daysOverdue)*rule.DailyRate, rule.MaxFine)
	return roundCents(fine)
}

// DueDate returns the due date for a loan starting on transactionDate for a
// member of memberType.
func DueDate(periods models.LendingPeriods, memberType string, transactionDate time.Time) time.Time {
	days, ok := periods[memberType]
	if !ok || days < 1 {
		days = settings.DefaultLendingPeriods()[memberType]
	}
	if days < 1 {
		days = settings.DefaultLendingPeriods()[models.MemberTypePublic]
	}
	return clock.AddDays(transactionDate, days)
}

func fineRuleFor(rules models.FineRules, memberType string) models.FineRule {
	if rule, ok := rules[memberType]; ok {
		return rule
	}
	if rule, ok := settings.DefaultFineRules()[memberType]; ok {
		return rule
	}
	return settings.DefaultFineRules()[models.MemberTypePublic]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
