package services

import (
	"strings"

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

// RequestService captures "request info" leads from the public site and lets
// administrators follow them up.
type RequestService struct {
	DB             *gorm.DB
	Publisher      messaging.IPublisher
	ActivityLogger activity.IActivityLogger
}

// PublicRoutes is mounted without authentication.
func (s RequestService) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.InfoRequestBody]).
		Post("/", handlers.CreateHandler(s.CreateRequest))
	return r
}

func (s RequestService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.InfoRequestListQueryParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetRequestList))

	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.GetRequest))
		r.With(m.Validate[models.InfoRequestStatusBody]).
			Patch("/", handlers.UpdateHandler(s.UpdateStatus))
		r.Delete("/", handlers.DeleteHandler(s.DeleteRequest))
	})
	return r
}

// CreateRequest stores a lead. Consent to the privacy notice is mandatory and a
// referenced vehicle must be visible in the catalog.
func (s RequestService) CreateRequest(
	logger *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	body models.InfoRequestBody,
) (models.InfoRequest, error) {
	if !body.PrivacyConsent {
		return models.InfoRequest{}, apierrors.NewAPIError(400, apierrors.CodePrivacyConsentMissing)
	}

	var vehicleName string
	if body.VehicleID != nil {
		vehicle, err := sql.GetVehicleByID(s.DB, *body.VehicleID, true)
		if err != nil {
			return models.InfoRequest{}, err
		}
		vehicleName = strings.TrimSpace(brandName(vehicle) + " " + vehicle.Model + " " + vehicle.Version)
	}

	request := models.InfoRequest{
		VehicleID:      body.VehicleID,
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Email:          body.Email,
		Phone:          body.Phone,
		Message:        body.Message,
		PrivacyConsent: true,
		Status:         models.InfoRequestStatusNew,
	}
	if err := s.DB.Create(&request).Error; err != nil {
		return models.InfoRequest{}, err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.InfoRequestCreated,
		Object:  request.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.InfoRequestCreated,
			"object_type": "info_request",
			"request_id":  idString(request.ID),
		}),
	})

	settings, err := sql.GetSettings(s.DB)
	if err != nil {
		logger.Error("Failed to load settings for lead notification", zap.Error(err))
		return request, nil
	}
	if settings.LeadEmail != "" {
		events.NewLeadCreated(s.Publisher, settings.LeadEmail, events.LeadCreatedPayload{
			RequestID: request.ID,
			FirstName: request.FirstName,
			LastName:  request.LastName,
			Email:     request.Email,
			Phone:     request.Phone,
			Vehicle:   vehicleName,
			Message:   request.Message,
		}).Trigger()
	}

	return request, nil
}

func (s RequestService) GetRequestList(
	_ *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.InfoRequestListQueryParams,
) ([]models.InfoRequest, error) {
	db := s.DB.Preload("Vehicle").Preload("Vehicle.Brand").Order("created_at DESC, id DESC")
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var requests []models.InfoRequest
	err := db.Find(&requests).Error
	return requests, err
}

func (s RequestService) GetRequest(_ *zap.Logger, _ models.UserClaims, ids []uint) (models.InfoRequest, error) {
	return s.findRequest(ids[0])
}

func (s RequestService) UpdateStatus(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.InfoRequestStatusBody,
) (models.InfoRequest, error) {
	request, err := s.findRequest(ids[0])
	if err != nil {
		return models.InfoRequest{}, err
	}

	if err = s.DB.Model(&request).Update("status", body.Status).Error; err != nil {
		return models.InfoRequest{}, err
	}
	request.Status = body.Status

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.InfoRequestUpdated,
		Object:  request.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.InfoRequestUpdated,
			"user_id":     idString(claims.UserID),
			"object_type": "info_request",
			"request_id":  idString(request.ID),
		}),
	})
	return request, nil
}

func (s RequestService) DeleteRequest(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	request, err := s.findRequest(ids[0])
	if err != nil {
		return err
	}

	if err = s.DB.Delete(&models.InfoRequest{}, request.ID).Error; err != nil {
		return err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.InfoRequestDeleted,
		Object:  request.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.InfoRequestDeleted,
			"user_id":     idString(claims.UserID),
			"object_type": "info_request",
			"request_id":  idString(request.ID),
		}),
	})
	return nil
}

func (s RequestService) findRequest(id uint) (models.InfoRequest, error) {
	var request models.InfoRequest
	if err := s.DB.Preload("Vehicle").Preload("Vehicle.Brand").Where("id = ?", id).First(&request).Error; err != nil {
		if isNotFound(err) {
			return models.InfoRequest{}, notFound(apierrors.CodeRequestNotFound)
		}
		return models.InfoRequest{}, err
	}
	return request, nil
}

func brandName(vehicle models.Vehicle) string {
	if vehicle.Brand == nil {
		return ""
	}
	return vehicle.Brand.Name
}
