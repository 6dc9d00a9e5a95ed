package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cmrp/handler"
	"cmrp/middleware"
	"cmrp/models"
	"cmrp/routes"
	"cmrp/worker"

	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API, websocket feed and background reconciliation",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.close()
	logger := d.logger

	if d.relay != nil {
		go func() {
			if err := d.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("redis relay stopped")
			}
		}()
	}

	reconcileWorker := worker.NewReconcileWorker(d.reconciler, d.cfg.Reconcile.Interval, models.ReconcileFull, logger)
	reconcileWorker.Start()
	defer reconcileWorker.Stop()

	h := routes.Handlers{
		Auth:       handler.NewAuthHandler(d.users, d.auth, logger),
		Complaints: handler.NewComplaintHandler(d.complaints, logger),
		Admin:      handler.NewAdminHandler(d.officers, d.users, d.reconciler, logger),
		Users:      handler.NewUserHandler(d.users, logger),
		Public:     handler.NewPublicHandler(d.complaints, d.analytics, logger),
		WS:         handler.NewWSHandler(d.hub, logger),
	}
	var uploads routes.Uploads
	if d.local != nil {
		uploads = routes.Uploads{Dir: d.local.BasePath(), URLPrefix: d.local.URLPrefix()}
	}

	router := routes.SetupRoutes(h, middleware.NewAuthMiddleware(d.auth, logger), uploads)

	srv := &http.Server{
		Addr:         d.cfg.Server.Addr(),
		Handler:      middleware.CORS(middleware.RequestLogger(logger)(router)),
		ReadTimeout:  d.cfg.Server.ReadTimeout,
		WriteTimeout: d.cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
