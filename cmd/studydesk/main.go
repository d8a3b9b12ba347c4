package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/studydesk/internal/backend"
	appI18n "github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/orchestrator"
	"github.com/pavelanni/studydesk/internal/store"
)

//go:generate templ generate -path ../..

func main() {
	if err := rootCmd().Execute(); err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// reported marks an error the transcript has already shown.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studydesk",
		Short:         "Study assistant front end for the generation service",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	serve := serveCmd()
	root.AddCommand(serve,
		askCmd(), quizCmd(), planCmd(), mapCmd(), slidesCmd(), summarizeCmd(),
		historyCmd(), exportCmd(),
	)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studydesk --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags are shared by every command.
func commonFlags(f *pflag.FlagSet) {
	f.String("db", "studydesk.db", "SQLite history database path")
	f.StringP("lang", "l", "en", "UI language (en, it)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// backendFlags are shared by commands that talk to the service.
func backendFlags(f *pflag.FlagSet) {
	f.String("backend-url", "http://localhost:5000", "Base URL of the generation service")
	f.Duration("timeout", 2*time.Minute, "Per-request timeout (0 = none)")
	f.Bool("no-history", false, "Do not record artifacts in the history database")
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd loads .env, then binds a command's flags, environment and
// config file to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env", "error", err)
	}

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studydesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studydesk")
	v.AddConfigPath("/etc/studydesk")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and i18n for cmd and returns its config.
func setup(cmd *cobra.Command) (*viper.Viper, error) {
	v := viperForCmd(cmd)
	setupLogging(v)
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	return v, nil
}

// openHistory opens the database and resolves this installation's client
// id. It returns a nil store when history is disabled.
func openHistory(v *viper.Viper) (*store.Store, string, error) {
	if v.GetBool("no-history") {
		return nil, "", nil
	}
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	clientID, err := db.ClientID()
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("client id: %w", err)
	}
	return db, clientID, nil
}

// recorder returns the history recorder for db, or nil without history.
func recorder(db *store.Store, clientID string) orchestrator.Recorder {
	if db == nil {
		return nil
	}
	return store.Recorder{Store: db, ClientID: clientID}
}

func newBackend(v *viper.Viper) *backend.Client {
	return backend.New(strings.TrimRight(v.GetString("backend-url"), "/"), v.GetDuration("timeout"))
}
