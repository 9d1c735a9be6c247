package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsaid97/go-grid-topology/config"
	"github.com/bsaid97/go-grid-topology/dataset"
	"github.com/bsaid97/go-grid-topology/handlers"
	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/bsaid97/go-grid-topology/logger/console"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:           "gridtopo",
		Short:         "Build a bus/branch grid model and bus regions from raw substations and lines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "scenario YAML file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	load := func() (config.Config, error) {
		config.LoadEnv()
		cfg, err := config.Load(configPath)
		if err != nil {
			initLogger(debug)
			logger.Error("Could not load config", "err", err)
			return cfg, err
		}
		cfg.Debug = cfg.Debug || debug
		initLogger(cfg.Debug)
		return cfg, nil
	}

	root.AddCommand(runCommand(load), serveCommand(load))
	return root
}

func initLogger(debug bool) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))
}

func runCommand(load func() (config.Config, error)) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline on the scenario inputs and write all outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Outputs.Dir = outDir
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg); err != nil {
				logger.Error("Run failed", "err", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory, overrides outputs.dir")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger.Info("=== Starting grid topology run ===", "countries", cfg.Countries)

	if cfg.Inputs.Substations == "" {
		return fmt.Errorf("inputs.substations is not set")
	}
	substations, err := os.Open(cfg.Inputs.Substations)
	if err != nil {
		return fmt.Errorf("failed to open substations: %v", err)
	}
	defer substations.Close()

	src := handlers.Sources{Substations: substations}
	if cfg.Inputs.Lines != "" {
		lines, err := os.Open(cfg.Inputs.Lines)
		if err != nil {
			return fmt.Errorf("failed to open lines: %v", err)
		}
		defer lines.Close()
		src.Lines = lines
	}
	if cfg.Inputs.CountryShapes != "" {
		if src.Onshore, err = dataset.ReadOutlinesFile(cfg.Inputs.CountryShapes, cfg.Inputs.NameProperty); err != nil {
			return fmt.Errorf("failed to read country shapes: %v", err)
		}
	}
	if cfg.Inputs.OffshoreShapes != "" {
		if src.Offshore, err = dataset.ReadOutlinesFile(cfg.Inputs.OffshoreShapes, cfg.Inputs.NameProperty); err != nil {
			return fmt.Errorf("failed to read offshore shapes: %v", err)
		}
	}

	out, err := handlers.BuildNetwork(ctx, cfg, src)
	if err != nil {
		return err
	}
	if err := dataset.WriteDir(cfg.Outputs.Dir, out, cfg.TableOptions()); err != nil {
		return err
	}
	if err := out.Diagnostics.Err(); err != nil {
		logger.Warn("Run finished with errors, see diagnostics.json", "err", err)
	}
	return nil
}

func serveCommand(load func() (config.Config, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("=== Starting grid topology server ===")
			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.NewServeMux(cfg),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "err", err)
				}
			}()

			logger.Info("Server is listening", "addr", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server failed to start", "err", err)
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
