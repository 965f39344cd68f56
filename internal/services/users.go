package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/handlers"
	"github.com/rentdesk/rentdesk/internal/messaging"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService is the administrator view of accounts.
type UserService struct {
	DB             *gorm.DB
	Publisher      messaging.IPublisher
	ActivityLogger activity.IActivityLogger
}

func (s UserService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.UserListQueryParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetUserList))

	r.Route("/{id0}", func(r chi.Router) {
		r.With(m.Validate[models.UserRoleUpdateBody]).
			Patch("/", handlers.UpdateHandler(s.UpdateRole))
		r.Delete("/", handlers.DeleteHandler(s.DeleteUser))
		r.Post("/2fa/reset", handlers.DeleteHandler(s.ResetTwoFactor))
	})
	return r
}

func (s UserService) GetUserList(
	_ *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.UserListQueryParams,
) ([]models.Principal, error) {
	db := s.DB.Preload("TwoFactor").Order("username ASC")
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		db = db.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}

	principals := make([]models.Principal, 0, len(users))
	for i := range users {
		principals = append(principals, users[i].ToPrincipal())
	}
	return principals, nil
}

func (s UserService) UpdateRole(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.UserRoleUpdateBody,
) (models.Principal, error) {
	if ids[0] == claims.UserID {
		return models.Principal{}, apierrors.NewAPIError(400, apierrors.CodeCannotModifySelf)
	}

	user, err := s.findUser(ids[0])
	if err != nil {
		return models.Principal{}, err
	}

	if err = s.DB.Model(user).Update("role", body.Role).Error; err != nil {
		return models.Principal{}, err
	}
	user.Role = body.Role

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserRoleUpdated,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":         activity.UserRoleUpdated,
			"user_id":        idString(claims.UserID),
			"target_user_id": idString(user.ID),
			"object_type":    "user",
		}),
	})
	return user.ToPrincipal(), nil
}

// DeleteUser soft deletes the account. The username stays reserved.
func (s UserService) DeleteUser(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	if ids[0] == claims.UserID {
		return apierrors.NewAPIError(400, apierrors.CodeCannotModifySelf)
	}

	user, err := s.findUser(ids[0])
	if err != nil {
		return err
	}

	if err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := sql.DeleteTwoFactor(tx, user.ID); err != nil {
			return err
		}
		return tx.Delete(user).Error
	}); err != nil {
		return err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserDeleted,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":         activity.UserDeleted,
			"user_id":        idString(claims.UserID),
			"target_user_id": idString(user.ID),
			"object_type":    "user",
		}),
	})
	return nil
}

// ResetTwoFactor removes the credential and backup codes of a user who lost their
// authenticator. The user is told by e-mail.
func (s UserService) ResetTwoFactor(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	if ids[0] == claims.UserID {
		return apierrors.NewAPIError(400, apierrors.CodeCannotModifySelf)
	}

	user, err := s.findUser(ids[0])
	if err != nil {
		return err
	}
	if user.TwoFactor == nil {
		return apierrors.NewAPIError(400, apierrors.CodeTwoFactorNotEnabled)
	}

	if err = s.DB.Transaction(func(tx *gorm.DB) error {
		return sql.DeleteTwoFactor(tx, user.ID)
	}); err != nil {
		return err
	}

	events.NewTwoFactorDisabled(s.Publisher, user.Email, user.Username, true).Trigger()
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.TwoFactorReset,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":         activity.TwoFactorReset,
			"user_id":        idString(claims.UserID),
			"target_user_id": idString(user.ID),
			"object_type":    "user",
		}),
	})

	logger.Info("Two-factor authentication reset by administrator",
		zap.Uint("admin_id", claims.UserID),
		zap.Uint("user_id", user.ID))
	return nil
}

func (s UserService) findUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.Preload("TwoFactor").Where("id = ?", id).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, notFound(apierrors.CodeUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}
