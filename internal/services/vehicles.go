package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/activity"
	c "github.com/rentdesk/rentdesk/internal/configuration"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"
	"github.com/rentdesk/rentdesk/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSeats = 5

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// VehicleService is the administrator side of the fleet: vehicles, their rental
// pricing options and their photos.
type VehicleService struct {
	DB             *gorm.DB
	Storage        storage.IStorage
	ActivityLogger activity.IActivityLogger
}

func (s VehicleService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.VehicleListQueryParams]).
		Get("/", handlers.GetOneWithQueryHandler(s.GetVehicleList))
	r.With(m.Validate[models.VehicleBody]).
		Post("/", handlers.CreateHandler(s.CreateVehicle))

	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.GetVehicle))
		r.With(m.Validate[models.VehicleBody]).
			Put("/", handlers.UpdateHandler(s.UpdateVehicle))
		r.Delete("/", handlers.DeleteHandler(s.DeleteVehicle))

		r.Route("/pricing", func(r chi.Router) {
			r.Get("/", handlers.GetListWithQueryHandler(s.GetPricingList))
			r.With(m.Validate[models.PricingOptionBody]).
				Post("/", handlers.CreateHandler(s.CreatePricing))

			r.Route("/{id1}", func(r chi.Router) {
				r.With(m.Validate[models.PricingOptionBody]).
					Put("/", handlers.UpdateHandler(s.UpdatePricing))
				r.Delete("/", handlers.DeleteHandler(s.DeletePricing))
			})
		})

		r.Route("/images", func(r chi.Router) {
			r.With(m.Validate[models.VehicleImageUploadBody]).
				Post("/", handlers.CreateHandler(s.CreateImageUpload))
			r.With(m.Validate[models.VehicleImageKeyBody]).
				Put("/", handlers.UpdateHandler(s.ConfirmImage))
			r.With(m.Validate[models.VehicleImageKeyBody]).
				Delete("/", handlers.BodyHandler(s.DeleteImage))
		})
	})
	return r
}

func (s VehicleService) GetVehicleList(
	logger *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.VehicleListQueryParams,
) (models.VehicleListResponse, error) {
	vehicles, total, err := sql.ListVehicles(s.DB, query, false)
	if err != nil {
		return models.VehicleListResponse{}, err
	}

	page, pageSize := sql.Pagination(query.Page, query.PageSize)
	return models.VehicleListResponse{
		Items:    vehicleCards(logger, s.Storage, vehicles),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s VehicleService) GetVehicle(logger *zap.Logger, _ models.UserClaims, ids []uint) (models.VehicleCard, error) {
	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return models.VehicleCard{}, err
	}
	return vehicleCard(logger, s.Storage, vehicle), nil
}

func (s VehicleService) CreateVehicle(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.VehicleBody,
) (models.Vehicle, error) {
	if err := s.checkTaxonomy(body); err != nil {
		return models.Vehicle{}, err
	}

	vehicle := models.Vehicle{ImageKeys: models.StringList{}}
	applyVehicleBody(&vehicle, body)
	if err := s.DB.Create(&vehicle).Error; err != nil {
		return models.Vehicle{}, err
	}

	s.logVehicle(logger, claims, activity.VehicleCreated, vehicle)
	return sql.GetVehicleByID(s.DB, vehicle.ID, false)
}

func (s VehicleService) UpdateVehicle(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.VehicleBody,
) (models.Vehicle, error) {
	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return models.Vehicle{}, err
	}
	if err = s.checkTaxonomy(body); err != nil {
		return models.Vehicle{}, err
	}

	var updated models.Vehicle
	applyVehicleBody(&updated, body)
	err = s.DB.Model(&models.Vehicle{ID: vehicle.ID}).
		Select("brand_id", "category_id", "model", "version", "year", "fuel",
			"transmission", "seats", "description", "published").
		Updates(updated).Error
	if err != nil {
		return models.Vehicle{}, err
	}

	s.logVehicle(logger, claims, activity.VehicleUpdated, vehicle)
	return sql.GetVehicleByID(s.DB, vehicle.ID, false)
}

// DeleteVehicle soft deletes the vehicle and takes it out of the carousel. Its photos
// are removed from the bucket on a best effort basis.
func (s VehicleService) DeleteVehicle(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", vehicle.ID).Delete(&models.Promo{}).Error; err != nil {
			return err
		}
		if err := sql.CompactPromoPositions(tx); err != nil {
			return err
		}
		return tx.Delete(&models.Vehicle{}, vehicle.ID).Error
	})
	if err != nil {
		return err
	}

	if s.Storage != nil {
		prefix := vehicleImagePrefix(vehicle.ID)
		keys, listErr := s.Storage.ListObjects(prefix, c.BulkActionsLimit)
		if listErr == nil {
			listErr = s.Storage.RemoveObjects(keys)
		}
		if listErr != nil {
			logger.Warn("Failed to remove vehicle images",
				zap.String("bucket", s.Storage.GetBucketName()),
				zap.String("prefix", prefix),
				zap.Error(listErr))
		}
	}

	s.logVehicle(logger, claims, activity.VehicleDeleted, vehicle)
	return nil
}

func (s VehicleService) GetPricingList(
	_ *zap.Logger,
	_ models.UserClaims,
	ids []uint,
	_ struct{},
) ([]models.RentalPricingOption, error) {
	if _, err := sql.GetVehicleByID(s.DB, ids[0], false); err != nil {
		return nil, err
	}

	var options []models.RentalPricingOption
	err := s.DB.Where("vehicle_id = ?", ids[0]).
		Order("monthly_price_cents ASC, id ASC").
		Find(&options).Error
	return options, err
}

// CreatePricing adds an option. The first option of a vehicle, or one flagged as
// default, becomes the only default.
func (s VehicleService) CreatePricing(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.PricingOptionBody,
) (models.RentalPricingOption, error) {
	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return models.RentalPricingOption{}, err
	}

	option := models.RentalPricingOption{VehicleID: vehicle.ID}
	applyPricingBody(&option, body)
	option.IsDefault = body.IsDefault || len(vehicle.PricingOptions) == 0

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&option).Error; err != nil {
			return err
		}
		if !option.IsDefault {
			return nil
		}
		return sql.ClearDefaultPricing(tx, vehicle.ID, option.ID)
	})
	if err != nil {
		return models.RentalPricingOption{}, err
	}

	s.logPricing(logger, claims, activity.PricingOptionSaved, option)
	return option, nil
}

func (s VehicleService) UpdatePricing(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.PricingOptionBody,
) (models.RentalPricingOption, error) {
	option, err := s.findPricing(ids[0], ids[1])
	if err != nil {
		return models.RentalPricingOption{}, err
	}

	applyPricingBody(&option, body)
	option.IsDefault = body.IsDefault

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RentalPricingOption{ID: option.ID}).
			Select("duration_months", "mileage_per_year", "monthly_price_cents", "down_payment_cents", "is_default").
			Updates(option).Error; err != nil {
			return err
		}
		if option.IsDefault {
			return sql.ClearDefaultPricing(tx, option.VehicleID, option.ID)
		}
		return nil
	})
	if err != nil {
		return models.RentalPricingOption{}, err
	}

	s.logPricing(logger, claims, activity.PricingOptionSaved, option)
	return option, nil
}

func (s VehicleService) DeletePricing(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	option, err := s.findPricing(ids[0], ids[1])
	if err != nil {
		return err
	}

	if err = s.DB.Delete(&models.RentalPricingOption{}, option.ID).Error; err != nil {
		return err
	}

	s.logPricing(logger, claims, activity.PricingOptionDeleted, option)
	return nil
}

// CreateImageUpload hands out a presigned PUT URL for a new photo. The key is only
// attached to the vehicle once ConfirmImage finds the uploaded object.
func (s VehicleService) CreateImageUpload(
	logger *zap.Logger,
	_ models.UserClaims,
	ids []uint,
	body models.VehicleImageUploadBody,
) (models.VehicleImageUploadResponse, error) {
	if s.Storage == nil {
		return models.VehicleImageUploadResponse{}, apierrors.NewAPIError(503, apierrors.CodeStorageDisabled)
	}

	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return models.VehicleImageUploadResponse{}, err
	}

	key := fmt.Sprintf("%s%s.%s", vehicleImagePrefix(vehicle.ID), uuid.NewString(), imageExtensions[body.ContentType])
	uploadURL, err := s.Storage.PresignedPutObject(key, c.UploadPolicyExpirationInMinutes*time.Minute)
	if err != nil {
		logger.Error("Failed to presign image upload", zap.String("key", key), zap.Error(err))
		return models.VehicleImageUploadResponse{}, apierrors.ErrInternal
	}

	return models.VehicleImageUploadResponse{Key: key, UploadURL: uploadURL}, nil
}

func (s VehicleService) ConfirmImage(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.VehicleImageKeyBody,
) (models.VehicleCard, error) {
	if s.Storage == nil {
		return models.VehicleCard{}, apierrors.NewAPIError(503, apierrors.CodeStorageDisabled)
	}

	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return models.VehicleCard{}, err
	}
	if !strings.HasPrefix(body.Key, vehicleImagePrefix(vehicle.ID)) {
		return models.VehicleCard{}, notFound(apierrors.CodeImageNotFound)
	}

	if _, err = s.Storage.StatObject(body.Key); err != nil {
		logger.Debug("Uploaded image not found", zap.String("key", body.Key), zap.Error(err))
		return models.VehicleCard{}, notFound(apierrors.CodeImageNotFound)
	}

	if !slices.Contains(vehicle.ImageKeys, body.Key) {
		vehicle.ImageKeys = append(vehicle.ImageKeys, body.Key)
		if err = s.DB.Model(&models.Vehicle{ID: vehicle.ID}).Update("image_keys", vehicle.ImageKeys).Error; err != nil {
			return models.VehicleCard{}, err
		}
		s.logVehicle(logger, claims, activity.VehicleImageAdded, vehicle)
	}

	return vehicleCard(logger, s.Storage, vehicle), nil
}

func (s VehicleService) DeleteImage(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.VehicleImageKeyBody,
) error {
	if s.Storage == nil {
		return apierrors.NewAPIError(503, apierrors.CodeStorageDisabled)
	}

	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], false)
	if err != nil {
		return err
	}

	index := slices.Index(vehicle.ImageKeys, body.Key)
	if index < 0 {
		return notFound(apierrors.CodeImageNotFound)
	}

	keys := slices.Delete(slices.Clone(vehicle.ImageKeys), index, index+1)
	if err = s.DB.Model(&models.Vehicle{ID: vehicle.ID}).Update("image_keys", models.StringList(keys)).Error; err != nil {
		return err
	}

	if err = s.Storage.RemoveObject(body.Key); err != nil {
		logger.Warn("Failed to remove image object", zap.String("key", body.Key), zap.Error(err))
	}

	s.logVehicle(logger, claims, activity.VehicleImageRemoved, vehicle)
	return nil
}

func (s VehicleService) checkTaxonomy(body models.VehicleBody) error {
	var count int64
	if err := s.DB.Model(&models.Brand{}).Where("id = ?", body.BrandID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound(apierrors.CodeBrandNotFound)
	}

	if err := s.DB.Model(&models.Category{}).Where("id = ?", body.CategoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound(apierrors.CodeCategoryNotFound)
	}
	return nil
}

func (s VehicleService) findPricing(vehicleID uint, optionID uint) (models.RentalPricingOption, error) {
	if _, err := sql.GetVehicleByID(s.DB, vehicleID, false); err != nil {
		return models.RentalPricingOption{}, err
	}

	var option models.RentalPricingOption
	err := s.DB.Where("id = ? AND vehicle_id = ?", optionID, vehicleID).First(&option).Error
	if err != nil {
		if isNotFound(err) {
			return models.RentalPricingOption{}, notFound(apierrors.CodePricingNotFound)
		}
		return models.RentalPricingOption{}, err
	}
	return option, nil
}

func (s VehicleService) logVehicle(logger *zap.Logger, claims models.UserClaims, action string, vehicle models.Vehicle) {
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: action,
		Object:  vehicle.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     idString(claims.UserID),
			"object_type": "vehicle",
			"vehicle_id":  idString(vehicle.ID),
		}),
	})
}

func (s VehicleService) logPricing(logger *zap.Logger, claims models.UserClaims, action string, option models.RentalPricingOption) {
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: action,
		Object:  option,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     idString(claims.UserID),
			"object_type": "pricing_option",
			"vehicle_id":  idString(option.VehicleID),
		}),
	})
}

func vehicleImagePrefix(vehicleID uint) string {
	return fmt.Sprintf("%s/%d/", c.VehicleImagePrefix, vehicleID)
}

func applyVehicleBody(vehicle *models.Vehicle, body models.VehicleBody) {
	vehicle.BrandID = body.BrandID
	vehicle.CategoryID = body.CategoryID
	vehicle.Model = body.Model
	vehicle.Version = body.Version
	vehicle.Year = body.Year
	vehicle.Fuel = body.Fuel
	vehicle.Transmission = body.Transmission
	vehicle.Seats = body.Seats
	if vehicle.Seats == 0 {
		vehicle.Seats = defaultSeats
	}
	vehicle.Description = body.Description
	vehicle.Published = body.Published
}

func applyPricingBody(option *models.RentalPricingOption, body models.PricingOptionBody) {
	option.DurationMonths = body.DurationMonths
	option.MileagePerYear = body.MileagePerYear
	option.MonthlyPriceCents = body.MonthlyPriceCents
	option.DownPaymentCents = body.DownPaymentCents
}
