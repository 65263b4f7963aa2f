//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"kestrel/app"
	"kestrel/hal"
	"kestrel/internal/config"
)

func main() {
	var cfg hal.HeadlessConfig
	var configPath, logLevel string
	var typeStdin, dump bool
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.StringVar(&cfg.Host.DiskPath, "fs", "", "Filesystem image (default $KESTREL_FS_PATH, then the built-in image).")
	flag.StringVar(&configPath, "config", "", "JSON configuration file.")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
	flag.BoolVar(&typeStdin, "stdin", false, "Type standard input into the keyboard in headless mode.")
	flag.BoolVar(&dump, "dump", false, "Print the screen when headless mode stops.")
	flag.Parse()

	appCfg := app.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath, appCfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		appCfg = *loaded
	}
	if logLevel != "" {
		appCfg.LogLevel = logLevel
	}

	var sys *app.System
	newApp := func(h hal.HAL) func() error {
		s, step := app.Start(h, appCfg)
		sys = s
		return step
	}

	if cfg.Enabled {
		if typeStdin {
			cfg.Stdin = os.Stdin
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, newApp, cfg)
		if dump && sys != nil {
			fmt.Print(sys.Screen())
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(cfg.Host, newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
