package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/akolanti/KnowledgeAPI/internal/adapter"
	"github.com/akolanti/KnowledgeAPI/internal/app"
	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/handlers"
	"github.com/akolanti/KnowledgeAPI/internal/mcpServer"
	"github.com/akolanti/KnowledgeAPI/internal/server"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("main")

func main() {
	var (
		configPath string
		listenAddr string
		force      bool
	)

	rootCmd := &cobra.Command{
		Use:           "knowledge-api",
		Short:         "Answer questions from a local document collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listenAddr)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Config file path")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen-addr", "", "Server listen address (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, listenAddr)
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Restore or build the index and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(configPath, force)
		},
	}
	indexCmd.Flags().BoolVar(&force, "force", false, "Rebuild from the data directory even if a persisted index exists")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and print the JSON response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(configPath, strings.Join(args, " "))
		},
	}

	rootCmd.AddCommand(serveCmd, indexCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadSettings(configPath string) (config.Settings, error) {
	_ = godotenv.Load()
	settings, err := config.Load(configPath)
	if err != nil {
		return settings, err
	}
	logger_i.Init(settings.Log.Level, settings.Log.JSON)
	return settings, nil
}

func runServe(configPath, listenAddr string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		settings.Server.ListenAddr = listenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	application, err := app.New(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return err
	}
	defer application.Close()

	// warm the index so the first query does not pay for the build
	go func() {
		if err := application.Service.EnsureIndex(serviceContext); err != nil {
			logger.Warn("Index not ready at startup", "error", err)
		}
	}()

	handler := handlers.NewHandler(application.Service, application.Library, settings.Server.MaxUploadBytes)
	mcp := mcpServer.NewServer(application.Service, application.Library)
	srv := server.NewServer(settings.Server, handler, mcp.HTTPHandler())

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go srv.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	})
	go srv.Start()

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}

func runIndex(configPath string, force bool) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer application.Close()

	if force {
		err = application.Service.Rebuild(ctx)
	} else {
		err = application.Service.EnsureIndex(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Println("index status:", application.Service.IndexStatus(ctx))
	return nil
}

func runAsk(configPath, question string) error {
	settings, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer application.Close()

	answer, err := application.Service.Ask(ctx, question)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(adapter.ToQueryResponse(answer))
}
