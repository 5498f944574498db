package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/holoray/holoray/internal/core/observability/log"
	"github.com/holoray/holoray/internal/gateway"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml or json config file")
	flag.Parse()

	config, err := gateway.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger := log.New(log.ParseLevel(config.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := gateway.NewServer(config, logger)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error starting gateway:", err)
		os.Exit(1)
	}

	<-stopCh
	cancel()
	if err := srv.Stop(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error stopping gateway:", err)
	}
}
