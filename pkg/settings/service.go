package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

// DefaultFineRules are used for any member type whose rule is unset or
// malformed.
func DefaultFineRules() models.FineRules {
	return models.FineRules{
		models.MemberTypeStudent: {DailyRate: 5, GracePeriod: 0, MaxFine: 500},
		models.MemberTypeFaculty: {DailyRate: 2, GracePeriod: 3, MaxFine: 200},
		models.MemberTypePublic:  {DailyRate: 10, GracePeriod: 0, MaxFine: 1000},
	}
}

// DefaultLendingPeriods are used for any member type whose period is unset or
// malformed.
func DefaultLendingPeriods() models.LendingPeriods {
	return models.LendingPeriods{
		models.MemberTypeStudent: 14,
		models.MemberTypeFaculty: 30,
		models.MemberTypePublic:  7,
	}
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Get returns the raw setting stored under key.
func (svc *Service) Get(ctx context.Context, key string) (*models.Setting, error) {
	setting := &models.Setting{}
	err := svc.db.NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Setting")
		}
		return nil, errors.WithStack(err)
	}
	return setting, nil
}

// Set stores value under key, replacing any existing value.
func (svc *Service) Set(ctx context.Context, key, value string) error {
	setting := &models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := svc.db.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

// Create stores value under key only if the key is unset. It returns a
// Conflict error when the key already exists.
func (svc *Service) Create(ctx context.Context, key, value string) error {
	setting := &models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	res, err := svc.db.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.Conflict(fmt.Sprintf("Setting %q is already set.", key))
	}
	return nil
}

// FineRules returns the fine rule for every member type, filling gaps from
// DefaultFineRules.
func (svc *Service) FineRules(ctx context.Context) (models.FineRules, error) {
	rules := DefaultFineRules()

	stored := models.FineRules{}
	ok, err := svc.load(ctx, models.SettingFineRules, &stored)
	if err != nil || !ok {
		return rules, err
	}

	for memberType, rule := range stored {
		if _, known := rules[memberType]; !known {
			continue
		}
		if validateFineRule(rule) != nil {
			logger.FromContext(ctx).Warn("ignoring invalid fine rule", logger.Data{"member_type": memberType})
			continue
		}
		rules[memberType] = rule
	}
	return rules, nil
}

// LendingPeriods returns the lending period for every member type, filling
// gaps from DefaultLendingPeriods.
func (svc *Service) LendingPeriods(ctx context.Context) (models.LendingPeriods, error) {
	periods := DefaultLendingPeriods()

	stored := models.LendingPeriods{}
	ok, err := svc.load(ctx, models.SettingLendingPeriods, &stored)
	if err != nil || !ok {
		return periods, err
	}

	for memberType, days := range stored {
		if _, known := periods[memberType]; !known || days < 1 {
			continue
		}
		periods[memberType] = days
	}
	return periods, nil
}

// UpdateFineRules replaces the stored fine rules. Every member type must be
// present.
func (svc *Service) UpdateFineRules(ctx context.Context, rules models.FineRules) (models.FineRules, error) {
	for _, memberType := range models.MemberTypes {
		rule, ok := rules[memberType]
		if !ok {
			return nil, errcodes.ValidationError(fmt.Sprintf("Fine rule for %q is required.", memberType))
		}
		if err := validateFineRule(rule); err != nil {
			return nil, errcodes.ValidationError(fmt.Sprintf("Fine rule for %q: %s", memberType, err.Error()))
		}
	}

	if err := svc.store(ctx, models.SettingFineRules, rules); err != nil {
		return nil, err
	}
	return svc.FineRules(ctx)
}

// UpdateLendingPeriods replaces the stored lending periods. Every member type
// must be present with at least one day.
func (svc *Service) UpdateLendingPeriods(ctx context.Context, periods models.LendingPeriods) (models.LendingPeriods, error) {
	for _, memberType := range models.MemberTypes {
		days, ok := periods[memberType]
		if !ok {
			return nil, errcodes.ValidationError(fmt.Sprintf("Lending period for %q is required.", memberType))
		}
		if days < 1 {
			return nil, errcodes.ValidationError(fmt.Sprintf("Lending period for %q must be at least 1 day.", memberType))
		}
	}

	if err := svc.store(ctx, models.SettingLendingPeriods, periods); err != nil {
		return nil, err
	}
	return svc.LendingPeriods(ctx)
}

// load decodes the JSON stored under key into v. A missing or malformed value
// reports false without an error so callers fall back to defaults.
func (svc *Service) load(ctx context.Context, key string, v interface{}) (bool, error) {
	setting, err := svc.Get(ctx, key)
	if err != nil {
		if errcodes.HasCode(err, "not_found") {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(setting.Value), v); err != nil {
		logger.FromContext(ctx).Err(err).Warn("malformed setting, using defaults", logger.Data{"key": key})
		return false, nil
	}
	return true, nil
}

func (svc *Service) store(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return svc.Set(ctx, key, string(b))
}

func validateFineRule(rule models.FineRule) error {
	switch {
	case rule.DailyRate < 0:
		return errors.New("daily_rate must be greater than or equal to 0")
	case rule.GracePeriod < 0:
		return errors.New("grace_period must be greater than or equal to 0")
	case rule.MaxFine < 0:
		return errors.New("max_fine must be greater than or equal to 0")
	}
	return nil
}
