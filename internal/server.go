package internal

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"assetdb-api/internal/auth"
	"assetdb-api/internal/config"
	"assetdb-api/internal/handlers"
	"assetdb-api/internal/locations"
	"assetdb-api/internal/models"
	"assetdb-api/internal/store"
	"assetdb-api/pkg/importer"
	"assetdb-api/pkg/importer/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Server struct {
	DB         *sql.DB // nil with the memory store
	Store      store.Store
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Locations  *locations.Service
	Imports    *handlers.ImportsHandler

	cfg    *config.Config
	logger *logrus.Logger
	log    *logrus.Entry
}

// OpenStore opens the store selected by STORE_DRIVER. The returned
// *sql.DB is nil for the memory store.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, *sql.DB, error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(db), db, nil
	case "memory", "":
		return store.NewMemory(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewServer wires the store, engines and routes.
func NewServer(cfg *config.Config, st store.Store, db *sql.DB, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("JWT configuration validation failed: %w", err)
	}

	aliases := wizard.DefaultAliases()
	if cfg.WizardAliases != "" {
		var err error
		if aliases, err = wizard.LoadAliases(cfg.WizardAliases); err != nil {
			return nil, err
		}
	}

	metrics := NewMetrics()
	imports := handlers.NewImportsHandler(importer.NewEngine(st, logger), wizard.New(st, aliases, logger), cfg.ImportMaxBytes, logger)
	imports.Observer = metrics

	s := &Server{
		DB:         db,
		Store:      st,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		Locations:  locations.NewService(st, logger),
		Imports:    imports,
		cfg:        cfg,
		logger:     logger,
		log:        logger.WithField("component", "server"),
	}

	s.Router.Use(RequestID, AccessLog(logger))
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.Router.Post("/auth/login", s.loginUser)

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s, nil
}

// Close releases the database, if any.
func (s *Server) Close(ctx context.Context) error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		w.Write([]byte("db: memory"))
		return
	}
	if err := s.DB.PingContext(r.Context()); err != nil {
		s.log.WithError(err).Error("db ping failed")
		http.Error(w, "db: unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("db: ok"))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	handlers.WriteError(w, s.log, err)
}

func adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return auth.MustRole(models.RoleAdmin)(h).(http.HandlerFunc)
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", s.me)

	// Clients - admin for write operations
	r.Get("/clients", s.listClients)
	r.Get("/clients/{id}", s.getClient)
	r.Post("/clients", adminOnly(s.createClient))
	r.Delete("/clients/{id}", adminOnly(s.deleteClient))

	// Location hierarchy
	r.Get("/clients/{id}/locations/tree", s.locationTree)
	r.Post("/clients/{id}/locations", s.createLocation)
	r.Get("/locations/{id}", s.getLocation)
	r.Patch("/locations/{id}", s.renameLocation)
	r.Patch("/locations/{id}/move-subtree", s.moveSubtree)
	r.Delete("/locations/{id}", adminOnly(s.deleteLocation))

	// Assets
	r.Get("/assets", s.listAssets)
	r.Get("/assets/{id}", s.getAsset)
	r.Post("/assets", s.createAsset)
	r.Patch("/assets/{id}/move", s.moveAsset)
	r.Get("/assets/{id}/attachments", s.listAttachments)
	r.Post("/assets/{id}/attachments", s.addAttachment)
	r.Delete("/assets/{id}/attachments/{filename}", s.deleteAttachment)
	r.Post("/assets/{id}/main-photo", s.setMainPhoto)
	r.Post("/assets/{id}/apply-template/{templateId}", s.applyTemplate)

	// Parts and suppliers - admin for write operations
	r.Get("/parts", s.listParts)
	r.Get("/parts/{id}", s.getPart)
	r.Post("/parts", adminOnly(s.createPart))
	r.Get("/suppliers", s.listSuppliers)
	r.Get("/suppliers/{id}", s.getSupplier)
	r.Post("/suppliers", adminOnly(s.createSupplier))
	r.Get("/suppliers/{id}/parts", s.supplierParts)
	r.Post("/suppliers/{id}/link-part", adminOnly(s.linkPart))
	r.Delete("/suppliers/{id}/link-part/{partId}", adminOnly(s.unlinkPart))

	// Jobs
	r.Get("/jobs", s.listJobs)
	r.Get("/jobs/{id}", s.getJob)
	r.Post("/jobs", s.createJob)
	r.Post("/jobs/{id}/resources", s.addJobResource)
	r.Delete("/jobs/{id}/resources/{index}", s.deleteJobResource)

	// BOM templates
	r.Get("/bom-templates", s.listBomTemplates)
	r.Post("/bom-templates", adminOnly(s.createBomTemplate))

	// CSV import/export - committing an import requires admin
	r.Get("/imports/types", s.Imports.Types)
	r.Get("/imports/{type}/template", s.Imports.Template)
	r.Get("/imports/{type}/export", s.Imports.Export)
	r.Post("/imports/wizard/locations", s.Imports.WizardLocations)
	r.Post("/imports/wizard/assets", s.Imports.WizardAssets)
	r.Post("/imports/{type}", s.importGuard(s.Imports.Import))
}

// importGuard lets any user dry-run an import but only admins commit one.
func (s *Server) importGuard(next http.HandlerFunc) http.HandlerFunc {
	admin := adminOnly(next)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dry_run") == "1" {
			next(w, r)
			return
		}
		admin(w, r)
	}
}
