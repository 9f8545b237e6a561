package settings

import "github.com/shishobooks/circulation/pkg/models"

type FineRulePayload struct {
	DailyRate   *float64 `json:"daily_rate" validate:"required,min=0"`
	GracePeriod *int     `json:"grace_period" validate:"required,min=0"`
	MaxFine     *float64 `json:"max_fine" validate:"required,min=0"`
}

func (p FineRulePayload) rule() models.FineRule {
	return models.FineRule{
		DailyRate:   *p.DailyRate,
		GracePeriod: *p.GracePeriod,
		MaxFine:     *p.MaxFine,
	}
}

type UpdateFineRulesPayload struct {
	Student FineRulePayload `json:"student"`
	Faculty FineRulePayload `json:"faculty"`
	Public  FineRulePayload `json:"public"`
}

func (p UpdateFineRulesPayload) rules() models.FineRules {
	return models.FineRules{
		models.MemberTypeStudent: p.Student.rule(),
		models.MemberTypeFaculty: p.Faculty.rule(),
		models.MemberTypePublic:  p.Public.rule(),
	}
}

type UpdateLendingPeriodsPayload struct {
	Student int `json:"student" validate:"required,min=1"`
	Faculty int `json:"faculty" validate:"required,min=1"`
	Public  int `json:"public" validate:"required,min=1"`
}

type SettingsResponse struct {
	FineRules      models.FineRules      `json:"fine_rules"`
	LendingPeriods models.LendingPeriods `json:"lending_periods"`
}
