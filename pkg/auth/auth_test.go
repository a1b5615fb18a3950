package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestToken_RoundTrip(t *testing.T) {
	a := New("jwt-secret", "master", time.Hour)

	token, err := a.CreateToken("ann@example.com", "v-1", database.RoleVolunteer)
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", claims.Subject)
	assert.Equal(t, "v-1", claims.UserID)
	assert.Equal(t, database.RoleVolunteer, claims.Role)
}

func TestToken_Rejected(t *testing.T) {
	a := New("jwt-secret", "master", time.Hour)

	t.Run("expired", func(t *testing.T) {
		old := New("jwt-secret", "master", time.Hour)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.CreateToken("ann@example.com", "v-1", database.RoleVolunteer)
		require.NoError(t, err)

		_, err = a.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		token, err := New("other", "master", time.Hour).CreateToken("ann@example.com", "v-1", database.RoleVolunteer)
		require.NoError(t, err)

		_, err = a.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := a.VerifyToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHMACKey(t *testing.T) {
	a := New("jwt", "master-secret", time.Hour)

	key := a.GenerateHMACKey("relief.org")
	name, err := a.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "relief.org", name)

	_, err = New("jwt", "other", time.Hour).VerifyHMACKey(key)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = a.VerifyHMACKey(key + "00")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	for _, bad := range []string{"", "nodot", ".sig", "name."} {
		_, err = a.VerifyHMACKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKeyFormat, bad)
	}
}

func TestEnsureAdminExists(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:auth_admin?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := database.NewGormStore(db)
	ctx := context.Background()

	created, err := EnsureAdminExists(ctx, store, "root", "pw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdminExists(ctx, store, "other", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := store.GetMasterUser(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", admin.Username)
	assert.True(t, CheckPasswordHash("pw", admin.PasswordHash))
}
