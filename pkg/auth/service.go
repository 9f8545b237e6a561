package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12
	// TokenExpiry is how long JWT tokens are valid.
	TokenExpiry = 12 * time.Hour
	// OperatorSubject is the JWT subject for the desk operator session.
	OperatorSubject = "operator"
)

// SettingsStore is the slice of the settings service auth needs.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) error
	Create(ctx context.Context, key, value string) error
}

// JWTClaims represents the claims in a JWT token.
type JWTClaims struct {
	// PINVersion is the updated_at of the PIN hash the token was issued
	// under, so changing the PIN ends every existing session.
	PINVersion int64 `json:"pin_version"`
	jwt.RegisteredClaims
}

// Service handles the operator PIN and session tokens.
type Service struct {
	settings  SettingsStore
	jwtSecret []byte
	cost      int
}

// NewService creates a new auth service.
func NewService(settings SettingsStore, jwtSecret string) *Service {
	return &Service{
		settings:  settings,
		jwtSecret: []byte(jwtSecret),
		cost:      BcryptCost,
	}
}

// NeedsSetup reports whether no PIN has been configured yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	_, err := s.settings.Get(ctx, models.SettingAuthPINHash)
	if err != nil {
		if errcodes.HasCode(err, "not_found") {
			return true, nil
		}
		return false, errors.WithStack(err)
	}
	return false, nil
}

// SetupPIN stores the first PIN. It fails once a PIN exists.
func (s *Service) SetupPIN(ctx context.Context, pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := s.hash(pin)
	if err != nil {
		return err
	}
	if err := s.settings.Create(ctx, models.SettingAuthPINHash, hash); err != nil {
		if errcodes.HasCode(err, "conflict") {
			return errcodes.Forbidden("Repeating setup")
		}
		return errors.WithStack(err)
	}
	logger.FromContext(ctx).Info("operator pin configured")
	return nil
}

// Login checks pin against the stored hash and returns a signed session
// token.
func (s *Service) Login(ctx context.Context, pin string) (string, error) {
	setting, err := s.settings.Get(ctx, models.SettingAuthPINHash)
	if err != nil {
		if errcodes.HasCode(err, "not_found") {
			return "", errcodes.Unauthorized("PIN has not been set up.")
		}
		return "", errors.WithStack(err)
	}

	if !CheckPIN(pin, setting.Value) {
		logger.FromContext(ctx).Warn("failed pin login")
		return "", errcodes.Unauthorized("Invalid PIN.")
	}

	return s.GenerateToken(setting.UpdatedAt)
}

// ChangePIN replaces the PIN after verifying the current one.
func (s *Service) ChangePIN(ctx context.Context, current, next string) error {
	setting, err := s.settings.Get(ctx, models.SettingAuthPINHash)
	if err != nil {
		if errcodes.HasCode(err, "not_found") {
			return errcodes.Unauthorized("PIN has not been set up.")
		}
		return errors.WithStack(err)
	}
	if !CheckPIN(current, setting.Value) {
		return errcodes.Unauthorized("Current PIN is incorrect.")
	}
	return s.ResetPIN(ctx, next)
}

// ResetPIN overwrites the PIN without checking the current one. Only the
// admin CLI uses it.
func (s *Service) ResetPIN(ctx context.Context, pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := s.hash(pin)
	if err != nil {
		return err
	}
	if err := s.settings.Set(ctx, models.SettingAuthPINHash, hash); err != nil {
		return errors.WithStack(err)
	}
	logger.FromContext(ctx).Info("operator pin changed")
	return nil
}

// GenerateToken creates a new JWT token bound to the PIN version.
func (s *Service) GenerateToken(pinUpdatedAt time.Time) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		PINVersion: pinUpdatedAt.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   OperatorSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject != OperatorSubject {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ValidateSession validates the token and checks it was issued under the
// current PIN.
func (s *Service) ValidateSession(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	setting, err := s.settings.Get(ctx, models.SettingAuthPINHash)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if setting.UpdatedAt.UnixNano() != claims.PINVersion {
		return nil, errors.New("token issued under a previous pin")
	}
	return claims, nil
}

func (s *Service) hash(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashed), nil
}

// ValidatePIN checks that pin is 4 to 8 digits.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return errcodes.ValidationError("PIN must be 4 to 8 digits.")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return errcodes.ValidationError("PIN must be 4 to 8 digits.")
		}
	}
	return nil
}

// CheckPIN compares a PIN with a hash.
func CheckPIN(pin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}
