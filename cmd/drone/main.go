package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"drone/config"
	"drone/supervisor"
	"drone/world"
)

func main() {
	os.Exit(run())
}

func run() int {
	config.InitConfig()
	cfg, err := config.Load()
	if err != nil {
		report("invalid configuration", err)
		return 1
	}

	mode := flag.String("mode", cfg.Mode, "local, listen or dial")
	addr := flag.String("addr", cfg.PeerAddr, "peer listen/dial address")
	wire := flag.String("wire", cfg.Wire, "peer wire format: text or binary")
	params := flag.String("params", cfg.ParamsPath, "JSON physics params file")
	viewerAddr := flag.String("viewer", cfg.ViewerAddr, "viewer/health HTTP address, empty to disable")
	shmDir := flag.String("shm-dir", cfg.ShmDir, "directory for the mapped blackboard, empty for in-process")
	logFile := flag.String("log", cfg.LogFile, "log file, empty for stderr")
	width := flag.Int("width", cfg.DisplayWidth, "window width in cells")
	height := flag.Int("height", cfg.DisplayHeight, "window height in cells")
	keyboard := flag.Bool("keyboard", true, "read commands from stdin")
	flag.Parse()

	cfg.Mode = *mode
	cfg.PeerAddr = *addr
	cfg.Wire = *wire
	cfg.ParamsPath = *params
	cfg.ViewerAddr = *viewerAddr
	cfg.ShmDir = *shmDir
	cfg.LogFile = *logFile
	cfg.DisplayWidth = *width
	cfg.DisplayHeight = *height

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			report("cannot open log file", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(f)
	}

	var keys io.Reader
	if *keyboard {
		keys = os.Stdin
	}

	sup, err := supervisor.New(cfg, keys)
	if err != nil {
		report("startup failed", err)
		return 1
	}
	defer sup.Close()

	if err := sup.Run(context.Background()); err != nil {
		if errors.Cause(err) == world.ErrResourceUnavailable {
			report("resource unavailable", err)
		} else {
			report("run failed", err)
		}
		return 1
	}
	return 0
}

func report(msg string, err error) {
	fmt.Print(chalk.Red)
	log.Print(msg+": ", err, chalk.Reset)
}
