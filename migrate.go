package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cmrp/models"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Re-route existing complaints against current officer coverage",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "unassigned-only",
			Usage: "Only complaints with no assigned officer",
		},
	},
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	mode := models.ReconcileFull
	if cCtx.Bool("unassigned-only") {
		mode = models.ReconcileUnassigned
	}

	report, err := d.reconciler.Reconcile(ctx, mode)
	if err != nil {
		return err
	}

	d.logger.WithFields(logrus.Fields{
		"mode":       report.Mode,
		"scanned":    report.Scanned,
		"updated":    report.Updated,
		"assigned":   report.Assigned,
		"no_officer": report.NoOfficer,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	}).Info("migration complete")
	return nil
}
