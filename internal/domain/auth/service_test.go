package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/internal/core/apperror"
)

// Mock objects
type fakeUserRepo struct {
	users  map[int64]*User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", username)
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) UpdateLoginState(ctx context.Context, user *User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	u, ok := r.users[userID]
	if !ok {
		return apperror.NewNotFound("user", userID)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	u, ok := r.users[userID]
	if !ok {
		return apperror.NewNotFound("user", userID)
	}
	u.IsActive = active
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]*User, error) {
	var out []*User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func newTestAuthService() (*Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret-key"))
	return NewService(repo, jwtSvc, DefaultServiceConfig()), repo
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	user, err := svc.CreateUser(ctx, "vendeuse1", "sup3rsecret", "Claire Martin", RoleSeller)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "sup3rsecret", user.PasswordHash)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "vendeuse1", "sup3rsecret", "Other", RoleSeller)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "vendeuse2", "short", "Short Pass", RoleSeller)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, "vendeuse3", "sup3rsecret", "Bad Role", "superviseur")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService()

	user := NewUser("admin", mustHash(t, "adminpass123"), "Admin", RoleAdmin)
	require.NoError(t, repo.Create(ctx, user))

	t.Run("success", func(t *testing.T) {
		token, loggedIn, err := svc.Login(ctx, Credentials{Username: "admin", Password: "adminpass123"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.NotEmpty(t, token.AccessToken)
		assert.Equal(t, user.ID, loggedIn.ID)
		assert.NotNil(t, loggedIn.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, Credentials{Username: "admin", Password: "wrong"})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	})

	t.Run("unknown user reports the same error", func(t *testing.T) {
		_, _, err := svc.Login(ctx, Credentials{Username: "ghost", Password: "whatever"})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	})

	t.Run("disabled account", func(t *testing.T) {
		disabled := NewUser("disabled", mustHash(t, "adminpass123"), "Gone", RoleSeller)
		require.NoError(t, repo.Create(ctx, disabled))
		require.NoError(t, repo.SetActive(ctx, disabled.ID, false))

		_, _, err := svc.Login(ctx, Credentials{Username: "disabled", Password: "adminpass123"})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService()

	user := NewUser("cashier", mustHash(t, "goodpass123"), "Cashier", RoleSeller)
	require.NoError(t, repo.Create(ctx, user))

	for i := 0; i < DefaultServiceConfig().MaxLoginAttempts; i++ {
		_, _, err := svc.Login(ctx, Credentials{Username: "cashier", Password: "badpass"})
		require.Error(t, err)
	}

	// The correct password no longer works while the lock holds.
	_, _, err := svc.Login(ctx, Credentials{Username: "cashier", Password: "goodpass123"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService()

	user := NewUser("pharma", mustHash(t, "oldpass123"), "Pharma", RolePharmacist)
	require.NoError(t, repo.Create(ctx, user))

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "nope", "newpass12345")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	})

	t.Run("new password too short", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "oldpass123", "tiny")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user.ID, "oldpass123", "newpass12345"))

		_, _, err := svc.Login(ctx, Credentials{Username: "pharma", Password: "newpass12345"})
		assert.NoError(t, err)
	})
}
