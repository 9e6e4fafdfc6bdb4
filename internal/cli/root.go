package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"draftpad/internal/config"
	"draftpad/internal/store"
	"draftpad/internal/watch"
)

// Launcher runs the editor window until the user closes it.
type Launcher func(ctx context.Context, cfg *config.Config, st *store.Store, log *slog.Logger) error

type App struct {
	ConfigPath string
	Debug      bool

	launch Launcher
}

func NewRootCmd(launch Launcher) *cobra.Command {
	app := &App{launch: launch}

	cmd := &cobra.Command{
		Use:          "draftpad",
		Short:        "A small always-on-top rich text notepad",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the editor
  draftpad

  # Print the saved document as plain text
  draftpad export

  # Show where the document lives
  draftpad path
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runEditor(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("DRAFTPAD_CONFIG", ""), "Path to config.yaml (default: user config dir)")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newInspectCmd(app))
	cmd.AddCommand(newPathCmd(app))

	return cmd
}

func runEditor(cmd *cobra.Command, app *App) error {
	if app.launch == nil {
		return errors.New("editor is not available in this build")
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}
	log, err := app.logger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if _, err := st.Load(); err != nil {
		log.Warn("starting with an empty document", "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		w, err := watch.New(st.Path(), st, watch.Options{Logger: log})
		if err != nil {
			log.Warn("external change detection disabled", "error", err)
		} else {
			go func() { _ = w.Run(ctx) }()
		}
	}

	runErr := app.launch(ctx, cfg, st, log)
	if err := st.Close(); err != nil {
		log.Error("final save failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (app *App) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(app.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (app *App) logger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if app.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func openStore(cfg *config.Config, log *slog.Logger) (*store.Store, error) {
	saveOpts, err := cfg.SaveOptions()
	if err != nil {
		return nil, err
	}
	return store.New(store.Options{
		Path:     cfg.DocumentPath(),
		Interval: cfg.Autosave.Interval,
		Save:     saveOpts,
		Load:     cfg.LoadOptions(),
		Logger:   log,
	})
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
