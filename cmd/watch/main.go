// Command watch follows one document record from the terminal: it polls the
// public status endpoint on the adaptive fast/slow cadence and prints progress
// until the record terminates or the session gives up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/monitor"
	"github.com/resumify/docflow/pkg/logger_i"
)

func main() {
	logger_i.Init()

	var (
		serverAddr string
		recordId   string
		format     string
		sizeBytes  int64
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:3000", "docflow server base URL")
	flag.StringVar(&recordId, "id", "", "document record id to watch")
	flag.StringVar(&format, "format", "pdf", "declared format, drives the progress estimate")
	flag.Int64Var(&sizeBytes, "size", 0, "artifact size in bytes, drives the progress estimate")
	flag.Parse()

	if recordId == "" {
		fmt.Fprintln(os.Stderr, "usage: watch -id <record-id> [-server URL] [-format pdf] [-size bytes]")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	watcher := monitor.NewMonitor(monitor.NewHTTPStatusReader(serverAddr), monitor.Config{
		FastInterval:    config.ClientFastPollInterval,
		SlowInterval:    config.ClientSlowPollInterval,
		SwitchThreshold: config.ClientSlowPollSwitchThreshold,
		MaxSession:      config.ClientMaxSessionDuration,
	})

	session := watcher.Watch(ctx, recordId, format, sizeBytes)
	for event := range session.Events() {
		switch event.Kind {
		case monitor.EventProgress:
			fmt.Printf("\r%-12s %5.1f%%", event.Stage, event.Progress)
		case monitor.EventDone:
			fmt.Printf("\r%-12s %5.1f%%\n", "done", event.Progress)
			fmt.Println(event.Text)
			return
		case monitor.EventError:
			fmt.Println()
			if event.Error != nil {
				fmt.Fprintf(os.Stderr, "extraction failed (%s): %s\n", event.Error.Kind, event.Error.Message)
			}
			if event.Hint != "" {
				fmt.Fprintln(os.Stderr, event.Hint)
			}
			os.Exit(1)
		}
	}
}
