package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alocode/restopos/config"
	"github.com/alocode/restopos/internal/adminapi"
	"github.com/alocode/restopos/internal/app"
	"github.com/alocode/restopos/internal/webserver"
	"go.uber.org/zap"
)

var (
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	runjob   = flag.String("job", "", "run one background job (sweep, retention, monitor) and exit")
	showconf = flag.Bool("showconf", false, "print the effective config and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *showconf {
		fmt.Printf("%+v\n", *cfg)
		return
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.DropAll()
		if err := application.MigrateDB(true); err != nil {
			zap.S().Fatalf("migrate: %v", err)
		}
		return
	}

	if *runjob != "" {
		if err := application.RunJobNow(*runjob); err != nil {
			zap.S().Errorf("job %s: %v", *runjob, err)
			os.Exit(1)
		}
		return
	}

	adminapi.Init()
	server := webserver.NewWebServer(cfg, application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zap.S().Errorf("admin api stopped: %v", err)
		}
	case s := <-sig:
		zap.S().Infof("received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zap.S().Errorf("shutdown: %v", err)
		}
	}
}
