// @title           Docflow API
// @version         1.0
// @description     Document ingestion and asynchronous text extraction
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/data/store"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/handlers"
	"github.com/resumify/docflow/internal/ingest"
	"github.com/resumify/docflow/internal/ocrjob"
	"github.com/resumify/docflow/internal/reconcile"
	"github.com/resumify/docflow/internal/server"
	"github.com/resumify/docflow/pkg/logger_i"
)

var (
	listenAddr     string
	reconcilerWait sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//record store: redis when reachable, in-memory otherwise
	var recordStore recordModel.RecordStore
	if redisRecords := store.GetRedisRecordStore(serviceContext); redisRecords != nil {
		recordStore = redisRecords
	} else {
		logger.Error("Redis store is offline, falling back to in-memory records")
		recordStore = store.InitInMemoryRecordStore()
	}

	//OCR job client: remote service when configured, local simulator otherwise
	var jobClient ocrjob.Client
	if config.OCRServiceAddr != "" {
		jobClient = ocrjob.NewHTTPClient(config.OCRServiceAddr)
		logger.Info("Using remote OCR service", "addr", config.OCRServiceAddr)
	} else {
		jobClient = ocrjob.NewLocalService()
		logger.Info("OCR_SERVICE_ADDR unset, using the local extraction simulator")
	}

	coordinator := ingest.NewCoordinator(recordStore, jobClient)
	documents := handlers.NewDocumentHandler(coordinator, recordStore)

	//background reconciler for async jobs
	reconciler := reconcile.NewReconciler(recordStore, jobClient, reconcile.Config{
		Timeout:         config.RecordTimeout,
		Interval:        config.ReconcileEvery,
		MaxPollAttempts: config.MaxPollAttempts,
		Concurrency:     config.ReconcileWorkers,
	})
	reconcilerWait.Add(1)
	go func() {
		defer reconcilerWait.Done()
		reconciler.Start(serviceContext)
	}()

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		ReconcilerDone:   &reconcilerWait,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, documents)

	<-stopExecution
	logger.Info("Server stopped")
}
