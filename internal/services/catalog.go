package services

import (
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"
	"github.com/rentdesk/rentdesk/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService is the public, read-only side of the marketplace. Unpublished
// vehicles and inactive promos are invisible here.
type CatalogService struct {
	DB      *gorm.DB
	Storage storage.IStorage
}

func (s CatalogService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/brands", handlers.GetListHandler(s.GetBrandList))
	r.Get("/categories", handlers.GetListHandler(s.GetCategoryList))
	r.Get("/promos", handlers.GetListHandler(s.GetPromoList))

	r.Route("/vehicles", func(r chi.Router) {
		r.With(m.ValidateQuery[models.VehicleListQueryParams]).
			Get("/", handlers.GetOneWithQueryHandler(s.GetVehicleList))
		r.Get("/{id0}", handlers.GetOneHandler(s.GetVehicle))
	})
	return r
}

func (s CatalogService) GetBrandList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Brand {
	var brands []models.Brand
	if err := s.DB.Order("name ASC").Find(&brands).Error; err != nil {
		logger.Error("Failed to list brands", zap.Error(err))
		return []models.Brand{}
	}
	return brands
}

func (s CatalogService) GetCategoryList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Category {
	var categories []models.Category
	if err := s.DB.Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to list categories", zap.Error(err))
		return []models.Category{}
	}
	return categories
}

// GetPromoList returns the active carousel in display order, skipping promos whose
// vehicle is no longer published.
func (s CatalogService) GetPromoList(logger *zap.Logger, _ models.UserClaims, _ []uint) []models.Promo {
	promos, err := sql.ListPromos(s.DB, true)
	if err != nil {
		logger.Error("Failed to list promos", zap.Error(err))
		return []models.Promo{}
	}

	visible := make([]models.Promo, 0, len(promos))
	for _, promo := range promos {
		if promo.Vehicle != nil && promo.Vehicle.Published {
			visible = append(visible, promo)
		}
	}
	return visible
}

func (s CatalogService) GetVehicleList(
	logger *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.VehicleListQueryParams,
) (models.VehicleListResponse, error) {
	vehicles, total, err := sql.ListVehicles(s.DB, query, true)
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

func (s CatalogService) GetVehicle(logger *zap.Logger, _ models.UserClaims, ids []uint) (models.VehicleCard, error) {
	vehicle, err := sql.GetVehicleByID(s.DB, ids[0], true)
	if err != nil {
		return models.VehicleCard{}, err
	}
	return vehicleCard(logger, s.Storage, vehicle), nil
}

func vehicleCards(logger *zap.Logger, store storage.IStorage, vehicles []models.Vehicle) []models.VehicleCard {
	cards := make([]models.VehicleCard, 0, len(vehicles))
	for _, vehicle := range vehicles {
		cards = append(cards, vehicleCard(logger, store, vehicle))
	}
	return cards
}

// vehicleCard resolves image keys to presigned URLs. Keys that cannot be signed are
// left out rather than failing the page.
func vehicleCard(logger *zap.Logger, store storage.IStorage, vehicle models.Vehicle) models.VehicleCard {
	card := models.VehicleCard{Vehicle: vehicle, ImageURLs: []string{}}
	if store == nil {
		return card
	}

	for _, key := range vehicle.ImageKeys {
		url, err := store.PresignedGetObject(key)
		if err != nil {
			logger.Warn("Failed to sign vehicle image", zap.String("key", key), zap.Error(err))
			continue
		}
		card.ImageURLs = append(card.ImageURLs, url)
	}
	return card
}
