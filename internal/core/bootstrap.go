package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rentdesk/rentdesk/internal/activity"
	c "github.com/rentdesk/rentdesk/internal/cache"
	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/events"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/messaging"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/notifier"
	"github.com/rentdesk/rentdesk/internal/services"
	"github.com/rentdesk/rentdesk/internal/storage"
	"github.com/rentdesk/rentdesk/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAdminUser makes sure the configured administrator exists and that its password
// and e-mail follow the configuration.
func CreateAdminUser(db *gorm.DB, config models.AppConfiguration) error {
	hash, err := h.CreateHash(config.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	adminUser := models.User{
		Username:       config.AdminUsername,
		Email:          config.AdminEmail,
		HashedPassword: hash,
		Role:           models.RoleAdmin,
		ProviderType:   models.LocalProviderType,
		ProviderKey:    string(models.LocalProviderType),
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"hashed_password", "email", "role", "deleted_at"}),
	}).Create(&adminUser).Error
}

// Dependencies are the shared clients built by main and handed to the server and workers.
type Dependencies struct {
	DB             *gorm.DB
	Cache          c.ICache
	Storage        storage.IStorage
	Notifier       notifier.INotifier
	ActivityLogger activity.IActivityLogger
	Events         *EventsManager
}

func (d Dependencies) publisher() messaging.IPublisher {
	if d.Events == nil {
		return nil
	}
	return d.Events.GetPublisher(configuration.EventsNotifications)
}

func StartWorkers(
	ctx context.Context,
	profile models.Profile,
	config models.Configuration,
	deps Dependencies,
	appIdentity string,
) {
	startWorker(ctx, profile.Workers.Notifications, workers.NotificationsWorkerName, deps.Cache, appIdentity,
		func(ctx context.Context) {
			worker := &workers.NotificationsWorker{
				Subscriber: deps.Events.GetSubscriber(configuration.EventsNotifications),
				Params: &events.EventParams{
					WebURL:   config.App.WebURL,
					Notifier: deps.Notifier,
				},
			}
			worker.Start(ctx)
		})

	startWorker(ctx, profile.Workers.EnrollmentCleanup, workers.EnrollmentCleanupWorkerName, deps.Cache, appIdentity,
		func(ctx context.Context) {
			worker := &workers.EnrollmentCleanupWorker{
				DB:          deps.DB,
				Tracker:     &workers.RunTracker{DB: deps.DB},
				RunInterval: time.Duration(config.App.EnrollmentCleanupInterval) * time.Minute,
			}
			worker.Start(ctx)
		})
}

func startWorker(
	ctx context.Context,
	mode models.WorkerMode,
	workerName string,
	cache c.ICache,
	appIdentity string,
	runWorker func(context.Context),
) {
	switch mode {
	case models.WorkerModeDisabled:
		return
	case models.WorkerModeSingleton:
		go startSingletonWorker(ctx, cache, appIdentity, workerName, runWorker)
	default:
		go runWorker(ctx)
		zap.L().Info("Started worker", zap.String("worker", workerName))
	}
}

// startSingletonWorker keeps trying to take the worker lock. The instance holding it
// runs the worker and stops it as soon as a refresh fails.
func startSingletonWorker(
	ctx context.Context,
	cache c.ICache,
	instanceID string,
	workerName string,
	runWorker func(context.Context),
) {
	lockKey := fmt.Sprintf(configuration.CacheAppWorkerLockKey, workerName)
	ticker := time.NewTicker(time.Duration(configuration.CacheAppWorkerLockRefresh) * time.Second)
	defer ticker.Stop()

	var cancelWorker context.CancelFunc
	defer func() {
		if cancelWorker != nil {
			cancelWorker()
		}
	}()

	for {
		if cancelWorker == nil {
			acquired, err := cache.TryAcquireLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil {
				zap.L().Error("Failed to acquire worker lock", zap.String("worker", workerName), zap.Error(err))
			}

			if acquired {
				zap.L().Info("Acquired worker lock, starting worker", zap.String("worker", workerName))
				var workerCtx context.Context
				workerCtx, cancelWorker = context.WithCancel(ctx)
				go runWorker(workerCtx)
			}
		} else {
			refreshed, err := cache.RefreshLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil || !refreshed {
				zap.L().Warn("Lost worker lock, stopping worker", zap.String("worker", workerName))
				cancelWorker()
				cancelWorker = nil
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// NewRouter wires every service under /api.
func NewRouter(config models.Configuration, deps Dependencies, providers configuration.Providers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(m.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authConfig := config.App.GetAuthConfig()
	publisher := deps.publisher()

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(m.Authenticate(authConfig.JWTSecret, deps.Cache))
		apiRouter.Use(m.RateLimit(deps.Cache, config.App.RequestsPerMinute, config.App.TrustedProxies))

		apiRouter.Mount("/auth/2fa", services.TwoFactorService{
			DB:             deps.DB,
			Cache:          deps.Cache,
			AuthConfig:     authConfig,
			Publisher:      publisher,
			ActivityLogger: deps.ActivityLogger,
		}.Routes())

		apiRouter.Mount("/catalog", services.CatalogService{
			DB:      deps.DB,
			Storage: deps.Storage,
		}.Routes())

		apiRouter.Mount("/requests", services.RequestService{
			DB:             deps.DB,
			Publisher:      publisher,
			ActivityLogger: deps.ActivityLogger,
		}.PublicRoutes())

		apiRouter.Mount("/settings", services.SettingsService{
			DB:             deps.DB,
			ActivityLogger: deps.ActivityLogger,
		}.PublicRoutes())

		apiRouter.Route("/admin", func(adminRouter chi.Router) {
			adminRouter.Use(m.AuthorizeRole(models.RoleAdmin))

			adminRouter.Mount("/vehicles", services.VehicleService{
				DB:             deps.DB,
				Storage:        deps.Storage,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/brands", services.BrandService{
				DB:             deps.DB,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/categories", services.CategoryService{
				DB:             deps.DB,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/promos", services.PromoService{
				DB:             deps.DB,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/requests", services.RequestService{
				DB:             deps.DB,
				Publisher:      publisher,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/users", services.UserService{
				DB:             deps.DB,
				Publisher:      publisher,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/settings", services.SettingsService{
				DB:             deps.DB,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/activity", services.ActivityService{
				ActivityLogger: deps.ActivityLogger,
			}.Routes())

			adminRouter.Mount("/dashboard", services.AdminService{
				DB:             deps.DB,
				ActivityLogger: deps.ActivityLogger,
			}.Routes())
		})

		// login, registration, current user and OIDC providers live at the API root
		apiRouter.Mount("/", services.AuthService{
			DB:             deps.DB,
			Cache:          deps.Cache,
			AuthConfig:     authConfig,
			Providers:      providers,
			ActivityLogger: deps.ActivityLogger,
		}.Routes())
	})

	return r
}

// StartHTTPServer serves the API until ctx is cancelled, then drains in-flight requests.
func StartHTTPServer(ctx context.Context, config models.Configuration, deps Dependencies) {
	providers := configuration.LoadProviders(ctx, config.App.APIURL, config.Auth.Providers)

	var handler http.Handler = NewRouter(config, deps, providers)
	if config.Tracing.Enabled {
		handler = otelhttp.NewHandler(handler, serviceName)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.App.Port),
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Failed to shut down the HTTP server", zap.Error(err))
		}
	}()

	zap.L().Info("HTTP server starting", zap.Int("port", config.App.Port))

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("Failed to start the app", zap.Error(err))
	}
}
