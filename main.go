package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rae1st/oscillate/engine/app"
)

// Populated via -ldflags at build time.
var (
	versionName = "dev"
	commitSHA   = ""
	buildTime   = ""
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("c", "config.ini", "path to the engine config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	build := app.BuildInfo{
		RuntimeVer: runtime.Version(),
		BinVersion: versionName,
		CommitSHA:  commitSHA,
		BuildTime:  buildTime,
		BuildArch:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if *showVersion {
		fmt.Printf("oscillate %s (%s, %s)\n", build.BinVersion, build.CommitSHA, build.BuildArch)
		return
	}

	if err := run(*configPath, build); err != nil {
		fmt.Fprintln(os.Stderr, "oscillate:", err)
		os.Exit(1)
	}
}

func run(configPath string, build app.BuildInfo) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := app.New(ctx, configPath, build)
	if err != nil {
		return err
	}

	if err := engine.Start(ctx); err != nil {
		_ = engine.Shutdown(context.Background())
		return err
	}

	// Block until a shutdown signal, then give in-flight saves and player
	// teardown a bounded window to finish.
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	return engine.Shutdown(shutdownCtx)
}
