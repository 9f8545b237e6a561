package main

import (
	"os"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:    "circulationctl",
		Usage:   "administer a circulation database from the shell",
		Version: version.String(),
		Before:  openApp,
		After:   closeApp,
		Commands: []*cli.Command{
			integrityCommand(),
			pinCommand(),
			exportCommand(),
			importCommand(),
			backupCommand(),
			statsCommand(),
			overdueCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}
