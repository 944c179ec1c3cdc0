// Package server assembles the HTTP router from the modules.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crmnice/internal/config"
	"crmnice/internal/middleware"
	"crmnice/internal/modules/auth"
	"crmnice/internal/modules/company"
	"crmnice/internal/modules/favorite"
	"crmnice/internal/modules/settings"
	"crmnice/internal/pkg/jwt"
	"crmnice/internal/pkg/render"
	"crmnice/internal/pkg/storage"
	"crmnice/internal/repository"
)

type Options struct {
	DB           *gorm.DB
	Media        *storage.Local
	MediaURL     string
	JWTSecret    string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
	PageSize     int
	Location     *time.Location
	CORSOrigins  []string
}

func OptionsFromConfig(cfg *config.Config, db *gorm.DB) Options {
	return Options{
		DB:           db,
		Media:        storage.NewLocal(cfg.MediaDir, cfg.MediaURL),
		MediaURL:     cfg.MediaURL,
		JWTSecret:    cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		PageSize:     cfg.PageSize,
		Location:     cfg.Location(),
		CORSOrigins:  cfg.CORSAllowedOrigins,
	}
}

// sections that exist in the navigation but have no functionality yet
var stubSections = []string{"clients", "tasks", "sales", "seo", "franchises", "finances"}

func NewRouter(opts Options) *gin.Engine {
	db := opts.DB

	userRepo := repository.NewUserRepository(db)
	refRepo := repository.NewReferenceRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)

	tokens := jwt.New(opts.JWTSecret, opts.SessionTTL)

	authService := auth.NewService(userRepo, refRepo, tokens)
	authHandler := auth.NewHandler(authService, auth.CookieConfig{
		Name:   opts.CookieName,
		Secure: opts.CookieSecure,
		TTL:    opts.SessionTTL,
	})

	companyService := company.NewService(companyRepo, refRepo, favoriteRepo, opts.Media, opts.Location, opts.PageSize)
	companyHandler := company.NewHandler(companyService)

	favoriteHandler := favorite.NewHandler(favorite.NewService(favoriteRepo, companyRepo))
	settingsHandler := settings.NewHandler(settings.NewService(refRepo))

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(),
		middleware.CORS(opts.CORSOrigins),
		middleware.Session(tokens, authService, opts.CookieName),
	)
	r.NoRoute(middleware.NoRoute)

	if opts.Media != nil && opts.MediaURL != "" {
		r.Static(opts.MediaURL, opts.Media.BaseDir())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/companies/")
	})

	root := r.Group("")
	authHandler.RegisterRoutes(root)
	companyHandler.RegisterRoutes(root)
	favoriteHandler.RegisterRoutes(root)
	settingsHandler.RegisterRoutes(root)

	stubs := root.Group("", middleware.RequireLogin())
	for _, section := range stubSections {
		stubs.GET("/"+section+"/", func(c *gin.Context) {
			render.View(c, http.StatusOK, "stubs/in_development", gin.H{"section": section})
		})
	}

	return r
}
