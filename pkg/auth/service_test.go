package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/migrations"
	"github.com/shishobooks/circulation/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(settings.NewService(setupTestDB(t)), "test-secret")
	svc.cost = bcrypt.MinCost
	return svc
}

func TestService_SetupAndLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	needsSetup, err := svc.NeedsSetup(ctx)
	require.NoError(t, err)
	assert.True(t, needsSetup)

	_, err = svc.Login(ctx, "1234")
	assert.True(t, errcodes.HasCode(err, "unauthorized"))

	require.NoError(t, svc.SetupPIN(ctx, "1234"))

	needsSetup, err = svc.NeedsSetup(ctx)
	require.NoError(t, err)
	assert.False(t, needsSetup)

	err = svc.SetupPIN(ctx, "9999")
	assert.True(t, errcodes.HasCode(err, "forbidden"))

	_, err = svc.Login(ctx, "0000")
	assert.True(t, errcodes.HasCode(err, "unauthorized"))

	token, err := svc.Login(ctx, "1234")
	require.NoError(t, err)

	claims, err := svc.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, OperatorSubject, claims.Subject)
}

func TestService_PINFormat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	for _, pin := range []string{"", "123", "123456789", "12a4", " 1234"} {
		err := svc.SetupPIN(ctx, pin)
		assert.True(t, errcodes.HasCode(err, "validation_error"), pin)
	}
	require.NoError(t, svc.SetupPIN(ctx, "12345678"))
}

func TestService_ChangePINEndsOldSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.SetupPIN(ctx, "1234"))
	oldToken, err := svc.Login(ctx, "1234")
	require.NoError(t, err)

	err = svc.ChangePIN(ctx, "4321", "5678")
	assert.True(t, errcodes.HasCode(err, "unauthorized"))

	require.NoError(t, svc.ChangePIN(ctx, "1234", "5678"))

	_, err = svc.ValidateSession(ctx, oldToken)
	assert.Error(t, err)

	_, err = svc.Login(ctx, "1234")
	assert.True(t, errcodes.HasCode(err, "unauthorized"))

	newToken, err := svc.Login(ctx, "5678")
	require.NoError(t, err)
	_, err = svc.ValidateSession(ctx, newToken)
	assert.NoError(t, err)
}

func TestService_ValidateTokenRejectsForeignTokens(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	other := NewService(nil, "another-secret")
	token, err := other.GenerateToken(time.Now())
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   OperatorSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)

	wrongSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = wrongSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestService_ResetPIN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.ResetPIN(ctx, "2468"))
	_, err := svc.Login(ctx, "2468")
	assert.NoError(t, err)
}
