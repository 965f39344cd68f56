package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/handlers"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BrandService and CategoryService manage the two vehicle taxonomies. Both are keyed
// by a unique slug used in catalog filters.
type BrandService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s BrandService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetListHandler(s.GetBrandList))
	r.With(m.Validate[models.BrandBody]).
		Post("/", handlers.CreateHandler(s.CreateBrand))

	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.GetBrand))
		r.With(m.Validate[models.BrandBody]).
			Put("/", handlers.UpdateHandler(s.UpdateBrand))
		r.Delete("/", handlers.DeleteHandler(s.DeleteBrand))
	})
	return r
}

func (s BrandService) GetBrandList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Brand {
	var brands []models.Brand
	if err := s.DB.Order("name ASC").Find(&brands).Error; err != nil {
		logger.Error("Failed to list brands", zap.Error(err))
		return []models.Brand{}
	}
	return brands
}

func (s BrandService) GetBrand(_ *zap.Logger, _ models.UserClaims, ids []uint) (models.Brand, error) {
	var brand models.Brand
	if err := s.DB.Where("id = ?", ids[0]).First(&brand).Error; err != nil {
		if isNotFound(err) {
			return models.Brand{}, notFound(apierrors.CodeBrandNotFound)
		}
		return models.Brand{}, err
	}
	return brand, nil
}

func (s BrandService) CreateBrand(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.BrandBody,
) (models.Brand, error) {
	slug, err := reserveSlug(s.DB, &models.Brand{}, body.Slug, body.Name, 0)
	if err != nil {
		return models.Brand{}, err
	}

	brand := models.Brand{Name: body.Name, Slug: slug}
	if err = s.DB.Create(&brand).Error; err != nil {
		if isDuplicate(err) {
			return models.Brand{}, apierrors.NewAPIError(409, apierrors.CodeSlugConflict)
		}
		return models.Brand{}, err
	}

	s.logBrand(logger, claims, activity.BrandSaved, brand)
	return brand, nil
}

func (s BrandService) UpdateBrand(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.BrandBody,
) (models.Brand, error) {
	brand, err := s.GetBrand(logger, claims, ids)
	if err != nil {
		return models.Brand{}, err
	}

	slug, err := reserveSlug(s.DB, &models.Brand{}, body.Slug, body.Name, brand.ID)
	if err != nil {
		return models.Brand{}, err
	}

	brand.Name = body.Name
	brand.Slug = slug
	if err = s.DB.Save(&brand).Error; err != nil {
		if isDuplicate(err) {
			return models.Brand{}, apierrors.NewAPIError(409, apierrors.CodeSlugConflict)
		}
		return models.Brand{}, err
	}

	s.logBrand(logger, claims, activity.BrandSaved, brand)
	return brand, nil
}

// DeleteBrand refuses while a vehicle still references the brand.
func (s BrandService) DeleteBrand(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	brand, err := s.GetBrand(logger, claims, ids)
	if err != nil {
		return err
	}

	if err = ensureUnused(s.DB, "brand_id", brand.ID); err != nil {
		return err
	}

	if err = s.DB.Delete(&brand).Error; err != nil {
		return err
	}

	s.logBrand(logger, claims, activity.BrandDeleted, brand)
	return nil
}

func (s BrandService) logBrand(logger *zap.Logger, claims models.UserClaims, action string, brand models.Brand) {
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: action,
		Object:  brand,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     idString(claims.UserID),
			"object_type": "brand",
		}),
	})
}

type CategoryService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s CategoryService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetListHandler(s.GetCategoryList))
	r.With(m.Validate[models.CategoryBody]).
		Post("/", handlers.CreateHandler(s.CreateCategory))

	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.GetCategory))
		r.With(m.Validate[models.CategoryBody]).
			Put("/", handlers.UpdateHandler(s.UpdateCategory))
		r.Delete("/", handlers.DeleteHandler(s.DeleteCategory))
	})
	return r
}

func (s CategoryService) GetCategoryList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Category {
	var categories []models.Category
	if err := s.DB.Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", zap.Error(err))
		return []models.Category{}
	}
	return categories
}

func (s CategoryService) GetCategory(_ *zap.Logger, _ models.UserClaims, ids []uint) (models.Category, error) {
	var category models.Category
	if err := s.DB.Where("id = ?", ids[0]).First(&category).Error; err != nil {
		if isNotFound(err) {
			return models.Category{}, notFound(apierrors.CodeCategoryNotFound)
		}
		return models.Category{}, err
	}
	return category, nil
}

func (s CategoryService) CreateCategory(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.CategoryBody,
) (models.Category, error) {
	slug, err := reserveSlug(s.DB, &models.Category{}, body.Slug, body.Name, 0)
	if err != nil {
		return models.Category{}, err
	}

	category := models.Category{Name: body.Name, Slug: slug}
	if err = s.DB.Create(&category).Error; err != nil {
		if isDuplicate(err) {
			return models.Category{}, apierrors.NewAPIError(409, apierrors.CodeSlugConflict)
		}
		return models.Category{}, err
	}

	s.logCategory(logger, claims, activity.CategorySaved, category)
	return category, nil
}

func (s CategoryService) UpdateCategory(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.CategoryBody,
) (models.Category, error) {
	category, err := s.GetCategory(logger, claims, ids)
	if err != nil {
		return models.Category{}, err
	}

	slug, err := reserveSlug(s.DB, &models.Category{}, body.Slug, body.Name, category.ID)
	if err != nil {
		return models.Category{}, err
	}

	category.Name = body.Name
	category.Slug = slug
	if err = s.DB.Save(&category).Error; err != nil {
		if isDuplicate(err) {
			return models.Category{}, apierrors.NewAPIError(409, apierrors.CodeSlugConflict)
		}
		return models.Category{}, err
	}

	s.logCategory(logger, claims, activity.CategorySaved, category)
	return category, nil
}

func (s CategoryService) DeleteCategory(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	category, err := s.GetCategory(logger, claims, ids)
	if err != nil {
		return err
	}

	if err = ensureUnused(s.DB, "category_id", category.ID); err != nil {
		return err
	}

	if err = s.DB.Delete(&category).Error; err != nil {
		return err
	}

	s.logCategory(logger, claims, activity.CategoryDeleted, category)
	return nil
}

func (s CategoryService) logCategory(logger *zap.Logger, claims models.UserClaims, action string, category models.Category) {
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: action,
		Object:  category,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     idString(claims.UserID),
			"object_type": "category",
		}),
	})
}

// reserveSlug derives the slug from the name when none is given and fails when another
// row, deleted ones included, already holds it.
func reserveSlug(db *gorm.DB, model any, slug string, name string, selfID uint) (string, error) {
	if slug == "" {
		slug = h.Slugify(name)
	}
	if slug == "" {
		return "", apierrors.NewAPIError(400, "SLUG_REQUIRED")
	}

	var count int64
	err := db.Unscoped().Model(model).Where("slug = ? AND id <> ?", slug, selfID).Count(&count).Error
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", apierrors.NewAPIError(409, apierrors.CodeSlugConflict)
	}
	return slug, nil
}

func ensureUnused(db *gorm.DB, column string, id uint) error {
	var count int64
	if err := db.Model(&models.Vehicle{}).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apierrors.NewAPIError(409, apierrors.CodeResourceInUse)
	}
	return nil
}
