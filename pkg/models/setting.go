package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SettingFineRules      = "fine_rules"
	SettingLendingPeriods = "lending_periods"
	SettingAuthPINHash    = "auth_pin_hash"
)

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key       string    `bun:",pk" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FineRule holds the overdue fine parameters for one member type.
type FineRule struct {
	DailyRate   float64 `json:"daily_rate"`
	GracePeriod int     `json:"grace_period"`
	MaxFine     float64 `json:"max_fine"`
}

// FineRules is keyed by member type.
type FineRules map[string]FineRule

// LendingPeriods maps member type to loan length in days.
type LendingPeriods map[string]int
