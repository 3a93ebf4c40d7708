package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"stationflow/internal/config"
	"stationflow/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control surface",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("[stationflow] load config: %v", err)
	}

	a, err := build(cfg)
	if err != nil {
		log.Fatalf("[stationflow] wire application: %v", err)
	}
	defer a.Close()

	if cfg.WorkflowDir != "" {
		result, err := a.workflows.SyncWorkflowFiles(cmd.Context(), cfg.WorkflowDir)
		if err != nil {
			log.Printf("[stationflow] workflow directory sync failed: %v", err)
		} else {
			log.Printf("[stationflow] synced %d workflow(s) from %s (%d error(s))", len(result.Synced), cfg.WorkflowDir, len(result.Errors))
		}
	}

	handlers := httpapi.New(a.engine, a.workflows, a.toolsReg, a.files)
	router := gin.New()
	router.Use(gin.Recovery(), gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return "[stationflow] " + p.Method + " " + p.Path + " " + p.Latency.String() + "\n"
	}))
	handlers.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: cfg.HTTPTimeout}

	go func() {
		log.Printf("[stationflow] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[stationflow] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("[stationflow] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
