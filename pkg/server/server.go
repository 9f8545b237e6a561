package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/circulation/pkg/auth"
	"github.com/shishobooks/circulation/pkg/binder"
	"github.com/shishobooks/circulation/pkg/books"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/joblogs"
	"github.com/shishobooks/circulation/pkg/jobs"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/members"
	"github.com/shishobooks/circulation/pkg/settings"
	"github.com/shishobooks/circulation/pkg/testutils"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, clk clock.Clock) (*http.Server, error) {
	e, err := NewEcho(cfg, db, clk)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// NewEcho builds the router with every route registered. Services are
// constructed here and shared across packages.
func NewEcho(cfg *config.Config, db *bun.DB, clk clock.Clock) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	settingsService := settings.NewService(db)
	ledgerService := ledger.NewService(db, settingsService, clk)
	bookService := books.NewService(db, clk)
	memberService := members.NewService(db)
	jobService := jobs.NewService(db)
	jobLogService := joblogs.NewService(db)
	authService := auth.NewService(settingsService, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	auth.RegisterRoutesWithGroup(e.Group("/auth"), authService, authMiddleware)

	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.Authenticate)
	books.RegisterRoutesWithGroup(booksGroup, bookService)

	membersGroup := e.Group("/members")
	membersGroup.Use(authMiddleware.Authenticate)
	members.RegisterRoutesWithGroup(membersGroup, memberService, ledgerService)

	ledger.RegisterRoutesWithGroup(e.Group(""), ledgerService, authMiddleware.Authenticate)

	settingsGroup := e.Group("/settings")
	settingsGroup.Use(authMiddleware.Authenticate)
	settings.RegisterRoutesWithGroup(settingsGroup, settingsService)

	jobsGroup := e.Group("/jobs")
	jobsGroup.Use(authMiddleware.Authenticate)
	jobs.RegisterRoutesWithGroup(jobsGroup, jobService, cfg.ExportDir)
	joblogs.RegisterRoutes(jobsGroup, jobLogService, jobService)

	if cfg.Environment == "test" {
		testutils.RegisterRoutes(e, db, authService)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler(errcodes.WithUnavailable(database.IsBusy)).Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
