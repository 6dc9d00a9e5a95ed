package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file when present; real environment variables win
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using environment variables")
	}

	app := &cli.App{
		Name:  "cmrp",
		Usage: "Civic complaint management and routing backend",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
