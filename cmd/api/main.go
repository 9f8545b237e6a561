package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/migrations"
	"github.com/shishobooks/circulation/pkg/server"
	"github.com/shishobooks/circulation/pkg/version"
	"github.com/shishobooks/circulation/pkg/worker"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting circulation", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initExportDir(cfg.ExportDir); err != nil {
		log.Err(err).Fatal("export directory error")
	}
	log.Info("export directory initialized", logger.Data{"path": cfg.ExportDir})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	clk := clock.System()
	wrkr := worker.New(cfg, db, clk)

	srv, err := server.New(cfg, db, clk)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started", logger.Data{"processes": cfg.WorkerProcesses})

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initExportDir creates the directory jobs read from and write to, and checks
// that it is writable.
func initExportDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create export directory: %s", dir)
	}

	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return errors.Wrapf(err, "export directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(f.Name()); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", f.Name())
	}

	return nil
}
