package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/internal/adminapi"
	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/webserver"
	"github.com/talkincode/auctions/internal/webui"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "develop"

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then seed defaults")
	dbtrack  = flag.Bool("migrate", false, "run the schema migration with sql tracing and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg := config.LoadConfig(*conffile)
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}
	if *dbtrack {
		if err := application.MigrateDB(true); err != nil {
			zap.S().Fatal(err)
		}
		return
	}

	srv := webserver.NewServer(cfg, application)
	adminapi.Init(srv)
	if err := webui.Init(srv, application); err != nil {
		zap.S().Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Errorf("server stopped: %v", err)
		os.Exit(1)
	}
	zap.S().Info("server stopped")
}
