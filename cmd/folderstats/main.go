package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/samtupy/folderstats/internal/log"
	"github.com/samtupy/folderstats/internal/model"
	"github.com/samtupy/folderstats/internal/report"
	"github.com/samtupy/folderstats/internal/server"
	"github.com/samtupy/folderstats/internal/service"
	"github.com/samtupy/folderstats/internal/stats"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	userConfigPath string // /default/config/path/folderstats on given OS
	configPath     string // actual config file used (if loaded)

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag

	flagExclude []string
	flagWorkers int
	flagOutput  string
	flagDepth   int
)

var rootCmd = &cobra.Command{
	Use:          "folderstats",
	Short:        "Tool summarizing the content of directory trees",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run command reads the configuration and runs the service in the configured mode",
	RunE:  doRun,
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "scan command scans a single directory tree and prints its statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides a version of folderstats",
	RunE:  doVersion,
}

func init() {
	// user configuration
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "folderstats")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is folderstats.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// scan flags
	scanCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "top level directory names to skip (default from config)")
	scanCmd.Flags().IntVar(&flagWorkers, "workers", 0, "number of scan workers, 0 means one per CPU")
	scanCmd.Flags().StringVar(&flagOutput, "output", model.OutputText, "report format: text, json or yaml")
	scanCmd.Flags().IntVar(&flagDepth, "depth", 1, "directory levels below the root to report")

	// never print messages and usage
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		slog.Error("folderstats failed", "err", err)
		switch {
		case errors.Is(err, model.ErrAborted):
			fmt.Fprintln(os.Stderr, model.ErrAborted.Error())
		case strings.HasPrefix(err.Error(), "unknown command"):
			_ = rootCmd.Help() // ./cmd bflmp
		default:
			_ = cmd.Help() // ./cmd run gfagf (extra arg)
		}
		os.Exit(1)
	}
}

func doVersion(cmd *cobra.Command, args []string) error {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return fmt.Errorf("folderstats: version info not available")
	}

	if configPath != "" {
		fmt.Printf("config: %s\n", configPath)
	}
	fmt.Printf("folderstats: %s\n", info.Main.Version)
	fmt.Printf("go:     %s\n", info.GoVersion)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			fmt.Printf("commit: %s\n", s.Value)
		case "vcs.time":
			fmt.Printf("date:   %s\n", s.Value)
		case "vcs.modified":
			fmt.Printf("dirty:  %s\n", s.Value)
		}
	}
	fmt.Println()

	return nil
}

func doScan(cmd *cobra.Command, args []string) error {
	config := model.DefaultConfig()
	if flagConfigFilePath != "" {
		var err error
		configPath = flagConfigFilePath
		config, err = model.LoadConfigFromPath(configPath)
		if err != nil {
			return err
		}
	}

	// flags have a precedence over config file
	if len(args) == 1 {
		config.Scan.Root = args[0]
	}
	if cmd.Flags().Changed("exclude") {
		config.Scan.Exclude = flagExclude
	}
	if cmd.Flags().Changed("workers") {
		config.Scan.Workers = flagWorkers
	}
	if cmd.Flags().Changed("output") || config.Output.Format == "" {
		config.Output.Format = flagOutput
	}
	if cmd.Flags().Changed("depth") {
		config.Output.Depth = flagDepth
	}
	if flagVerbose {
		config.Service.Verbose = true
	}
	if config.Scan.Root == "" {
		config.Scan.Root = "."
	}

	// the report goes to stdout, so do the logs only when asked to
	slog.SetDefault(log.New(config.Service.Verbose))
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("folderstats",
		slog.String("cmd", "scan"),
		slog.Int("pid", os.Getpid()),
	))
	slog.DebugContext(ctx, "scan", "config", config)

	counter := stats.New("folderstats")
	app, err := NewApp(config.Scan, counter, nil)
	if err != nil {
		return err
	}
	res, h, err := app.ScanOnce(ctx, config.Scan)
	if err != nil {
		return err
	}
	for k, v := range counter.Stats() {
		slog.DebugContext(ctx, "stats", k, v)
	}
	if !res.Success {
		return model.ErrAborted
	}
	return report.Write(os.Stdout, config.Output.Format, report.New(h.Store(), h.Root(), config.Output.Depth, res))
}

func doRun(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unsupported arguments: %s", strings.Join(args, ", "))
	}
	config, closeLog, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log: %s\n", err)
		}
	}()

	ctx := cmd.Context()

	attrs := slog.Group("folderstats",
		slog.String("cmd", "run"),
		slog.String("mode", config.Service.Mode),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)
	slog.DebugContext(ctx, "", "config", config)

	counter := stats.New("folderstats")

	if config.Service.Mode != model.ServiceModeServer {
		app, err := NewApp(config.Scan, counter, nil)
		if err != nil {
			return err
		}
		supervisor, err := service.NewSupervisor(ctx, config, app.Coordinator())
		if err != nil {
			return err
		}
		return supervisor.Do(ctx)
	}

	children := server.NewChildren()
	app, err := NewApp(config.Scan, counter, children)
	if err != nil {
		return err
	}
	srv := server.New(ctx, config, app.Coordinator(), children)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if config.Scan.Root != "" {
		g.Go(func() error {
			h, err := app.Coordinator().Start(ctx, config.Scan.Root, config.Scan.Exclude, config.Scan.Workers)
			if err != nil {
				// the API can start another one
				slog.ErrorContext(ctx, "initial scan failed", "error", err)
				return nil
			}
			slog.InfoContext(ctx, "initial scan started", "root", h.Root(), "generation", h.Generation())
			return nil
		})
	}
	err = g.Wait()
	app.Shutdown()
	return err
}

func loadConfig(_ *cobra.Command, _ []string) (model.Config, func() error, error) {
	nop := func() error { return nil }
	if envConfig, ok := os.LookupEnv("FOLDERSTATSCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "folderstats.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	var config model.Config

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "folderstats.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return config, nop, fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return config, nop, fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		err = enc.Encode(config)
		if err != nil {
			return config, nop, fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		var err error
		config, err = model.LoadConfigFromPath(configPath)
		if err != nil {
			return config, nop, err
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	// initialize logging
	logger, closeLog, err := log.Open(config.Service.Log, config.Service.Verbose)
	if err != nil {
		return config, nop, err
	}
	slog.SetDefault(logger)

	slog.Debug("folderstats run", "configPath", configPath)
	return config, closeLog, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
