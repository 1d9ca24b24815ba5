// cmd/iapctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tamzrod/iap-bootstate/internal/backend"
	"github.com/tamzrod/iap-bootstate/internal/config"
	"github.com/tamzrod/iap-bootstate/internal/iap"
	"github.com/tamzrod/iap-bootstate/internal/watch"
)

// exitNotArmed is returned by "check" when no request is armed.
const exitNotArmed = 3

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("iapctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML config file (defaults: in-memory bank, PiOS layout)")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		printUsage(stderr)
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error("config validation failed", "err", err)
		return 1
	}
	config.Normalize(cfg)

	// --------------------
	// Build bank + store
	// --------------------

	l := cfg.Layout()
	b, closeBank, err := backend.Build(cfg.BootState.Backend, l.BankSlots)
	if err != nil {
		logger.Error("backend build failed", "kind", cfg.BootState.Backend.Kind, "err", err)
		return 1
	}
	defer closeBank()

	store, err := iap.New(b,
		iap.WithLayout(l),
		iap.WithMagic(cfg.Magic()),
		iap.WithLogger(logger),
	)
	if err != nil {
		logger.Error("store build failed", "err", err)
		return 1
	}

	// Write access does not survive a reset; each invocation is a fresh boot.
	if mutates(fs.Args()) {
		if err := store.Initialize(); err != nil {
			logger.Error("initialize failed", "err", err)
			return 1
		}
	}

	code, err := dispatch(store, cfg, fs.Args(), stdout, logger)
	if err != nil {
		logger.Error("command failed", "cmd", fs.Arg(0), "err", err)
		return 1
	}
	return code
}

func dispatch(s *iap.Store, cfg *config.Config, args []string, stdout io.Writer, logger *slog.Logger) (int, error) {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "init":
		return 0, s.Initialize()

	case "check":
		armed, err := s.CheckRequest()
		if err != nil {
			return 0, err
		}
		fmt.Fprintln(stdout, armed)
		if !armed {
			return exitNotArmed, nil
		}
		return 0, nil

	case "arm":
		return 0, s.Arm()

	case "phase1":
		return 0, s.SetRequestPhase1()

	case "phase2":
		return 0, s.SetRequestPhase2()

	case "clear":
		return 0, s.ClearRequest()

	case "bootcount":
		if len(rest) == 0 {
			n, err := s.ReadBootCount()
			if err != nil {
				return 0, err
			}
			fmt.Fprintln(stdout, n)
			return 0, nil
		}
		v, err := parseUint(rest[0], 16)
		if err != nil {
			return 0, err
		}
		return 0, s.WriteBootCount(uint16(v))

	case "cmd":
		if len(rest) == 0 {
			return 0, errors.New("usage: cmd <index> [value]")
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil {
			return 0, fmt.Errorf("index %q: %w", rest[0], err)
		}
		if len(rest) == 1 {
			v, err := s.ReadBootCommand(idx)
			if err != nil {
				return 0, err
			}
			fmt.Fprintf(stdout, "0x%08X\n", v)
			return 0, nil
		}
		v, err := parseUint(rest[1], 32)
		if err != nil {
			return 0, err
		}
		return 0, s.WriteBootCommand(idx, uint32(v))

	case "dump":
		snap, err := s.Snapshot()
		if err != nil {
			return 0, err
		}
		printSnapshot(stdout, snap)
		return 0, nil

	case "watch":
		return 0, runWatch(s, cfg, stdout, logger)

	default:
		return 0, fmt.Errorf("unknown command %q", cmd)
	}
}

// mutates reports whether the command writes to the bank.
func mutates(args []string) bool {
	switch args[0] {
	case "arm", "phase1", "phase2", "clear":
		return true
	case "bootcount":
		return len(args) > 1
	case "cmd":
		return len(args) > 2
	default:
		return false
	}
}

// runWatch polls the store until interrupted and logs every change.
func runWatch(s *iap.Store, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	w, err := watch.New(watch.Config{
		Name:     cfg.BootState.Backend.Kind,
		Interval: time.Duration(cfg.BootState.Watch.IntervalMs) * time.Millisecond,
	}, s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := make(chan watch.Result)
	go w.Run(ctx, out)

	var (
		prev     iap.Snapshot
		havePrev bool
		failing  bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-out:
			if res.Err != nil {
				// Log once per failure streak.
				if !failing {
					logger.Warn("watch poll failed", "name", res.Name, "err", res.Err)
				}
				failing = true
				continue
			}
			if failing {
				logger.Info("watch poll recovered", "name", res.Name)
				failing = false
			}

			if !havePrev {
				printSnapshot(stdout, res.Snapshot)
				prev, havePrev = res.Snapshot, true
				continue
			}

			for _, tr := range watch.Transitions(prev, res.Snapshot) {
				fmt.Fprintf(stdout, "%s %s\n", res.At.Format(time.RFC3339), tr)
			}
			prev = res.Snapshot
		}
	}
}

func printSnapshot(w io.Writer, s iap.Snapshot) {
	fmt.Fprintf(w, "request:    %s (0x%04X 0x%04X)\n", s.Phase(), s.Magic1, s.Magic2)
	fmt.Fprintf(w, "boot_count: %d\n", s.BootCount)
	for i, c := range s.Commands {
		fmt.Fprintf(w, "command[%d]: 0x%08X\n", i, c)
	}
}

// parseUint accepts decimal, 0x hex, 0o octal and 0b binary.
func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	return v, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: iapctl [-config file] [-v] <command> [args]

commands:
  init                   enable backup domain, clear tamper flag
  check                  print whether an IAP request is armed (exit 3 if not)
  arm                    write both magic words
  phase1 | phase2        write one magic word
  clear                  zero both magic words
  bootcount [value]      read or write the boot counter
  cmd <index> [value]    read or write boot command 0..2
  dump                   print the whole boot state
  watch                  print boot state changes until interrupted

environment:
  IAP_BACKEND IAP_ENDPOINT IAP_UNIT_ID IAP_PATH IAP_TIMEOUT_MS`)
}
