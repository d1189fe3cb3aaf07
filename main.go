// Package main - main.go
//
// Command-line entry point.
//
// Commands:
//   ferrybot run                  calibrate and play until solved
//   ferrybot calibrate            locate the canvas once and print it
//   ferrybot solve M C left|right print the plan for a symbolic state
//   ferrybot analyze IN [OUT]     offline analysis of a saved screenshot
//
// Exit codes:
//   0 solved, 1 startup failure, 2 calibration failure,
//   3 controller stopped, 130 interrupted
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK          = 0
	exitStartup     = 1
	exitCalibration = 2
	exitStopped     = 3
	exitInterrupted = 130
)

// exitError attaches a process exit code to an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var se *StopError
	if errors.As(err, &se) {
		return exitStopped
	}
	return exitStartup
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	CloseLogger()
	return exitCode(err)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ferrybot",
		Short:         "Plays the missionaries and cannibals river-crossing puzzle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", DefaultConfigPath, "config file (created with defaults if missing)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newCalibrateCmd(), newSolveCmd(), newAnalyzeCmd())
	return root
}

// addBackendFlags registers the flags shared by commands that touch the game
func addBackendFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", BackendScreen, "capture/input backend: screen or browser")
	cmd.Flags().String("url", "", "game URL for the browser backend")
	cmd.Flags().String("window", "", "window title to activate (screen backend)")
	cmd.Flags().Bool("debug", false, "save an annotated frame per observation")
}

// setup loads the config for cmd and starts logging
func setup(cmd *cobra.Command) (*Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(path, cmd.Flags())
	if err != nil {
		return nil, withExit(exitStartup, err)
	}
	if err := InitLogger(cfg.Log.Path, cfg.Log.Level); err != nil {
		return nil, withExit(exitStartup, err)
	}
	if cfg.Created() {
		LogInfo("Created default config at %s", cfg.Path())
	}
	LogInfo("Config loaded from %s (backend %s)", cfg.Path(), cfg.Backend)
	return cfg, nil
}

// signalContext is cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openBackend returns the capture and input backend selected in cfg
func openBackend(cfg *Config) (Capturer, Pointer, func(), error) {
	switch cfg.Backend {
	case BackendBrowser:
		b := NewBrowser(cfg)
		if err := b.Start(); err != nil {
			b.Close()
			return nil, nil, nil, err
		}
		return b, b, b.Close, nil
	default:
		if err := FocusWindow(cfg.WindowTitle); err != nil {
			LogWarn("Window focus failed: %v", err)
		}
		return NewScreenCapturer(), NewRobotPointer(cfg.Timing), func() {}, nil
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Calibrate on the game window and solve the puzzle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			if !cfg.Tray {
				return runBot(ctx, cfg, nil)
			}

			var runErr error
			var tray *TrayApp
			tray = NewTrayApp(func() {
				runErr = runBot(ctx, cfg, tray)
			}, cancel)
			// Run waits for work, so runErr is final here
			tray.Run()
			return runErr
		},
	}
	addBackendFlags(cmd)
	cmd.Flags().Bool("tray", false, "show progress in the system tray")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// runBot calibrates and runs the controller. extra may be nil.
func runBot(ctx context.Context, cfg *Config, extra EventSink) error {
	sinks := MultiSink{NewNarrator()}
	if extra != nil {
		sinks = append(sinks, extra)
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, NewMetricsSink(reg))
		go func() {
			if err := ServeMetrics(ctx, cfg.MetricsAddr, reg); err != nil {
				LogError("Metrics server: %v", err)
			}
		}()
	}

	capturer, pointer, closeBackend, err := openBackend(cfg)
	if err != nil {
		return withExit(exitStartup, err)
	}
	defer closeBackend()

	perception, err := NewPerception(cfg, capturer)
	if err != nil {
		return withExit(exitStartup, err)
	}
	defer perception.Close()

	if _, err := perception.Calibrate(ctx); err != nil {
		return withExit(exitCalibration, fmt.Errorf("calibration: %w", err))
	}

	ctrl := NewController(cfg, perception, pointer, sinks)
	LogInfo("Run %s started", ctrl.RunID())
	if err := ctrl.Run(ctx); err != nil {
		return err
	}
	LogInfo("Run %s solved in %d crossings", ctrl.RunID(), ctrl.Step()-1)
	return nil
}

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Locate the game canvas and print its screen region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			capturer, _, closeBackend, err := openBackend(cfg)
			if err != nil {
				return withExit(exitStartup, err)
			}
			defer closeBackend()

			p := newPerception(cfg, capturer, nil, nil)
			region, err := p.Calibrate(ctx)
			if err != nil {
				return withExit(exitCalibration, fmt.Errorf("calibration: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "canvas %s\n", region)
			return nil
		},
	}
	addBackendFlags(cmd)
	return cmd
}

func newSolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solve MISSIONARIES_LEFT CANNIBALS_LEFT left|right",
		Short: "Print the move plan from a symbolic state",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return withExit(exitStartup, fmt.Errorf("missionaries: %w", err))
			}
			c, err := strconv.Atoi(args[1])
			if err != nil {
				return withExit(exitStartup, fmt.Errorf("cannibals: %w", err))
			}
			side, err := ParseSide(args[2])
			if err != nil {
				return withExit(exitStartup, err)
			}

			start := SymbolicState{MissionariesLeft: m, CannibalsLeft: c, Boat: side}
			plan, err := Solve(start)
			if err != nil {
				return withExit(exitStopped, err)
			}

			out := cmd.OutOrStdout()
			states, _ := Trace(start, plan)
			fmt.Fprintf(out, "%d moves from %s\n", len(plan), start)
			for i, mv := range plan {
				fmt.Fprintf(out, "%2d. board %s -> %s\n", i+1, mv, states[i+1])
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SCREENSHOT [OUTPUT]",
		Short: "Run detection on a saved screenshot and write an annotated copy",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			out := "result.png"
			if len(args) == 2 {
				out = args[1]
			}

			report, err := AnalyzeScreenshot(cfg, args[0], out)
			if err != nil {
				return withExit(exitStartup, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "canvas   %s (located: %v)\n", report.Canvas, report.Located)
			fmt.Fprintf(w, "groups   %s | boat %s\n", report.Sighting.Counts(), report.Sighting.BoatSide)
			fmt.Fprintf(w, "state    %s\n", report.State)
			if report.PlanErr != nil {
				fmt.Fprintf(w, "plan     none: %v\n", report.PlanErr)
			} else {
				fmt.Fprintf(w, "plan     %v\n", report.Plan)
			}
			fmt.Fprintf(w, "output   %s\n", out)
			return nil
		},
	}
}
