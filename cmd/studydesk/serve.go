package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pavelanni/studydesk/internal/handler"
	appI18n "github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/orchestrator"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", "127.0.0.1:8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /it)")
	f.Bool("secure-cookies", false, "Set Secure flag on cookies")
	commonFlags(f)
	backendFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}

	db, clientID, err := openHistory(v)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.Config{
		BackendURL:    v.GetString("backend-url"),
		Timeout:       v.GetDuration("timeout"),
		Lang:          v.GetString("lang"),
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		ClientID:      clientID,
	}

	graph := &handler.GraphSink{}
	orch := orchestrator.New(newBackend(v), orchestrator.Sinks{Graph: graph}, recorder(db, clientID))
	h := handler.New(orch, graph, db, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"backend_url", cfg.BackendURL,
		"timeout", cfg.Timeout,
		"lang", cfg.Lang,
		"base_path", basePath,
		"history", db != nil,
	)
	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
