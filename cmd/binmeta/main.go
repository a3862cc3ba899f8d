package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/drpcorg/binmeta"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/utils"
	"github.com/ergochat/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("types"),
	readline.PcItem("show"),
	readline.PcItem("json"),
	readline.PcItem("write"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

type closer interface {
	Close() error
}

func openRegistry(ctx context.Context, dir, redisAddr string, logger utils.Logger) (registry.Registry, error) {
	if redisAddr != "" {
		return registry.NewRedis(ctx, registry.RedisOptions{Addr: redisAddr, Logger: logger})
	}
	reg, err := registry.OpenPebble(dir, registry.PebbleOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	prometheus.MustRegister(registry.NewPebbleCollector(reg))
	return reg, nil
}

func main() {
	dir := flag.String("dir", "binmeta.db", "pebble registry directory")
	redisAddr := flag.String("redis", "", "redis address; overrides -dir")
	metrics := flag.String("metrics", "", "address to serve /metrics on")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := utils.NewDefaultLogger(level)
	ctx := context.Background()

	prometheus.MustRegister(binmeta.Collectors()...)
	reg, err := openRegistry(ctx, *dir, *redisAddr, logger)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	if *metrics != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metrics, mux); err != nil {
				logger.Error("metrics listener failed", "err", err)
			}
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".binmeta_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	rl.CaptureExitSignal()

	repl := &REPL{
		mgr: binmeta.NewManager(reg, binmeta.Options{Logger: logger}),
		out: os.Stdout,
	}
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}
		err = repl.Execute(ctx, strings.TrimSpace(line))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}
	_ = rl.Close()
	if c, ok := reg.(closer); ok {
		if err := c.Close(); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	}
}
