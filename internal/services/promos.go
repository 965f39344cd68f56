package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PromoService manages the homepage carousel. Positions are always 0..n-1.
type PromoService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s PromoService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetListHandler(s.GetPromoList))
	r.With(m.Validate[models.PromoBody]).
		Post("/", handlers.CreateHandler(s.CreatePromo))
	r.With(m.Validate[models.PromoOrderBody]).
		Put("/order", handlers.UpdateHandler(s.ReorderPromos))

	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.GetPromo))
		r.With(m.Validate[models.PromoBody]).
			Put("/", handlers.UpdateHandler(s.UpdatePromo))
		r.Delete("/", handlers.DeleteHandler(s.DeletePromo))
	})
	return r
}

func (s PromoService) GetPromoList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Promo {
	promos, err := sql.ListPromos(s.DB, false)
	if err != nil {
		logger.Error("Failed to list promos", zap.Error(err))
		return []models.Promo{}
	}
	return promos
}

func (s PromoService) GetPromo(_ *zap.Logger, _ models.UserClaims, ids []uint) (models.Promo, error) {
	var promo models.Promo
	if err := s.DB.Preload("Vehicle").Preload("Vehicle.Brand").Where("id = ?", ids[0]).First(&promo).Error; err != nil {
		if isNotFound(err) {
			return models.Promo{}, notFound(apierrors.CodePromoNotFound)
		}
		return models.Promo{}, err
	}
	return promo, nil
}

// CreatePromo appends the promo at the end of the carousel.
func (s PromoService) CreatePromo(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.PromoBody,
) (models.Promo, error) {
	if _, err := sql.GetVehicleByID(s.DB, body.VehicleID, false); err != nil {
		return models.Promo{}, err
	}

	promo := models.Promo{
		VehicleID: body.VehicleID,
		Title:     body.Title,
		Active:    body.Active == nil || *body.Active,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		position, err := sql.NextPromoPosition(tx)
		if err != nil {
			return err
		}
		promo.Position = position
		return tx.Create(&promo).Error
	})
	if err != nil {
		return models.Promo{}, err
	}

	s.logPromo(logger, claims, activity.PromoSaved, promo)
	return s.GetPromo(logger, claims, []uint{promo.ID})
}

func (s PromoService) UpdatePromo(
	logger *zap.Logger,
	claims models.UserClaims,
	ids []uint,
	body models.PromoBody,
) (models.Promo, error) {
	promo, err := s.GetPromo(logger, claims, ids)
	if err != nil {
		return models.Promo{}, err
	}
	if promo.VehicleID != body.VehicleID {
		if _, err = sql.GetVehicleByID(s.DB, body.VehicleID, false); err != nil {
			return models.Promo{}, err
		}
	}

	active := promo.Active
	if body.Active != nil {
		active = *body.Active
	}

	err = s.DB.Model(&models.Promo{ID: promo.ID}).
		Select("vehicle_id", "title", "active").
		Updates(models.Promo{VehicleID: body.VehicleID, Title: body.Title, Active: active}).Error
	if err != nil {
		return models.Promo{}, err
	}

	s.logPromo(logger, claims, activity.PromoSaved, promo)
	return s.GetPromo(logger, claims, ids)
}

func (s PromoService) DeletePromo(logger *zap.Logger, claims models.UserClaims, ids []uint) error {
	promo, err := s.GetPromo(logger, claims, ids)
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Promo{}, promo.ID).Error; err != nil {
			return err
		}
		return sql.CompactPromoPositions(tx)
	})
	if err != nil {
		return err
	}

	s.logPromo(logger, claims, activity.PromoDeleted, promo)
	return nil
}

// ReorderPromos takes the complete carousel in its new order. A list that omits,
// repeats or invents a promo is refused without touching positions.
func (s PromoService) ReorderPromos(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.PromoOrderBody,
) (models.Page[models.Promo], error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing []uint
		if err := tx.Model(&models.Promo{}).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if !sameIDSet(existing, body.IDs) {
			return apierrors.NewAPIError(400, apierrors.CodePromoOrderMismatch)
		}
		return sql.ApplyPromoOrder(tx, body.IDs)
	})
	if err != nil {
		return models.Page[models.Promo]{}, err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.PromosReordered,
		Object:  body,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.PromosReordered,
			"user_id":     idString(claims.UserID),
			"object_type": "promo",
		}),
	})

	promos, err := sql.ListPromos(s.DB, false)
	if err != nil {
		return models.Page[models.Promo]{}, err
	}
	return models.Page[models.Promo]{Data: promos}, nil
}

// sameIDSet reports whether order lists every id of existing exactly once.
func sameIDSet(existing []uint, order []uint) bool {
	if len(existing) != len(order) {
		return false
	}

	remaining := make(map[uint]bool, len(existing))
	for _, id := range existing {
		remaining[id] = true
	}
	for _, id := range order {
		if !remaining[id] {
			return false
		}
		delete(remaining, id)
	}
	return true
}

func (s PromoService) logPromo(logger *zap.Logger, claims models.UserClaims, action string, promo models.Promo) {
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: action,
		Object:  promo,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     idString(claims.UserID),
			"object_type": "promo",
			"vehicle_id":  idString(promo.VehicleID),
		}),
	})
}
