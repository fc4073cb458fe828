package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/resumify/docflow/internal/adapter/utils"
	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/handlers"
	"github.com/resumify/docflow/internal/middleware"
	"github.com/resumify/docflow/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	ReconcilerDone   *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string, documents *handlers.DocumentHandler) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Post("/documents", middleware.Wrap(documents.Upload))
	r.Router.Get("/documents/{id}/status", middleware.Wrap(documents.Status))
	r.Router.Post("/documents/{id}/retry", middleware.Wrap(documents.Retry))
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//stop the reconciler and let the in-flight pass drain
		shutdownParams.CloseServices()
		shutdownParams.ReconcilerDone.Wait()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
