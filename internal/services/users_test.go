package services

import (
	"testing"

	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (UserService, *tests.MockPublisher, *MockActivityLogger) {
	t.Helper()
	publisher := &tests.MockPublisher{}
	activityLogger := &MockActivityLogger{}
	return UserService{
		DB:             tests.NewSQLiteDB(t),
		Publisher:      publisher,
		ActivityLogger: activityLogger,
	}, publisher, activityLogger
}

func TestGetUserList(t *testing.T) {
	service, _, _ := newUserService(t)
	admin := createUser(t, service.DB, "admin", models.RoleAdmin)
	mrossi := createUser(t, service.DB, "mrossi", models.RoleUser)
	createUser(t, service.DB, "gbianchi", models.RoleUser)
	enableTwoFactor(t, service.DB, mrossi)

	t.Run("should list every user ordered by username", func(t *testing.T) {
		users, err := service.GetUserList(testLogger, claimsFor(admin), nil, models.UserListQueryParams{})
		require.NoError(t, err)

		names := make([]string, 0, len(users))
		for _, user := range users {
			names = append(names, user.Username)
		}
		assert.Equal(t, []string{"admin", "gbianchi", "mrossi"}, names)
		assert.True(t, users[2].TwoFactorEnabled)
		assert.False(t, users[1].TwoFactorEnabled)
	})

	t.Run("should filter on username or e-mail", func(t *testing.T) {
		users, err := service.GetUserList(testLogger, claimsFor(admin), nil, models.UserListQueryParams{Search: "ross"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, mrossi.ID, users[0].ID)
	})
}

func TestUpdateRole(t *testing.T) {
	t.Run("should promote a user", func(t *testing.T) {
		service, _, activityLogger := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)
		user := createUser(t, service.DB, "mrossi", models.RoleUser)

		principal, err := service.UpdateRole(testLogger, claimsFor(admin), []uint{user.ID},
			models.UserRoleUpdateBody{Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, principal.Role)

		var stored models.User
		require.NoError(t, service.DB.First(&stored, user.ID).Error)
		assert.Equal(t, models.RoleAdmin, stored.Role)
		assert.Equal(t, []string{"USER_ROLE_UPDATED"}, activityLogger.Messages)
	})

	t.Run("should refuse to change the caller's own role", func(t *testing.T) {
		service, _, _ := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)

		_, err := service.UpdateRole(testLogger, claimsFor(admin), []uint{admin.ID},
			models.UserRoleUpdateBody{Role: models.RoleUser})
		assertAPIError(t, err, 400, apierrors.CodeCannotModifySelf)
	})

	t.Run("should return not found for an unknown user", func(t *testing.T) {
		service, _, _ := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)

		_, err := service.UpdateRole(testLogger, claimsFor(admin), []uint{999},
			models.UserRoleUpdateBody{Role: models.RoleUser})
		assertAPIError(t, err, 404, apierrors.CodeUserNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	service, _, _ := newUserService(t)
	admin := createUser(t, service.DB, "admin", models.RoleAdmin)
	user := createUser(t, service.DB, "mrossi", models.RoleUser)
	enableTwoFactor(t, service.DB, user, "AAAA-1111")

	require.NoError(t, service.DeleteUser(testLogger, claimsFor(admin), []uint{user.ID}))

	var remaining int64
	require.NoError(t, service.DB.Model(&models.User{}).Where("id = ?", user.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var reserved int64
	require.NoError(t, service.DB.Unscoped().Model(&models.User{}).Where("username = ?", "mrossi").Count(&reserved).Error)
	assert.Equal(t, int64(1), reserved)

	credential, err := sql.GetTwoFactorCredential(service.DB, user.ID)
	require.NoError(t, err)
	assert.Nil(t, credential)

	err = service.DeleteUser(testLogger, claimsFor(admin), []uint{admin.ID})
	assertAPIError(t, err, 400, apierrors.CodeCannotModifySelf)
}

func TestResetTwoFactor(t *testing.T) {
	t.Run("should clear the credential and notify the user", func(t *testing.T) {
		service, publisher, activityLogger := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)
		user := createUser(t, service.DB, "mrossi", models.RoleUser)
		enableTwoFactor(t, service.DB, user, "AAAA-1111", "BBBB-2222")

		require.NoError(t, service.ResetTwoFactor(testLogger, claimsFor(admin), []uint{user.ID}))

		credential, err := sql.GetTwoFactorCredential(service.DB, user.ID)
		require.NoError(t, err)
		assert.Nil(t, credential)

		remaining, err := sql.CountRemainingBackupCodes(service.DB, user.ID)
		require.NoError(t, err)
		assert.Zero(t, remaining)

		assert.Equal(t, []string{events.TwoFactorDisabledName}, publisher.EventTypes())
		assert.Equal(t, []string{"TWO_FACTOR_RESET"}, activityLogger.Messages)
	})

	t.Run("should let the user log in with the password alone afterwards", func(t *testing.T) {
		service, _, _ := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)
		user := createUser(t, service.DB, "mrossi", models.RoleUser)
		enableTwoFactor(t, service.DB, user)

		require.NoError(t, service.ResetTwoFactor(testLogger, claimsFor(admin), []uint{user.ID}))

		auth := AuthService{DB: service.DB, Cache: tests.NewMemoryCache(), AuthConfig: testAuthConfig, Providers: localProviders}
		resp, err := auth.Login(testLogger, models.UserClaims{}, "", models.AuthLoginBody{Username: "mrossi", Password: testPassword})
		require.NoError(t, err)
		assert.NotNil(t, resp.Principal)
	})

	t.Run("should refuse a user without second factor", func(t *testing.T) {
		service, publisher, _ := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)
		user := createUser(t, service.DB, "mrossi", models.RoleUser)

		err := service.ResetTwoFactor(testLogger, claimsFor(admin), []uint{user.ID})
		assertAPIError(t, err, 400, apierrors.CodeTwoFactorNotEnabled)
		assert.Empty(t, publisher.EventTypes())
	})

	t.Run("should refuse to reset the caller", func(t *testing.T) {
		service, _, _ := newUserService(t)
		admin := createUser(t, service.DB, "admin", models.RoleAdmin)
		enableTwoFactor(t, service.DB, admin)

		err := service.ResetTwoFactor(testLogger, claimsFor(admin), []uint{admin.ID})
		assertAPIError(t, err, 400, apierrors.CodeCannotModifySelf)
	})
}
