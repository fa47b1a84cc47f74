// Command tools-mcp-server exposes the chat tools over MCP on stdin/stdout.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"persona-chatter/internal/config"
	"persona-chatter/internal/logging"
	"persona-chatter/internal/storage"
	"persona-chatter/internal/tools"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ failed to load config: %v", err)
	}
	// zap writes to stderr, stdout belongs to the transport.
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("❌ failed to open storage", zap.Error(err))
	}
	defer store.Close()

	box := tools.NewToolbox(store, logger.Named("tools"))
	server := tools.NewMCPServer(box, "1.0.0")

	logger.Info("🚀 Starting tools MCP server on stdin/stdout", zap.String("db", cfg.DBPath))
	if err := server.Run(context.Background(), mcp.NewStdioTransport()); err != nil {
		logger.Error("❌ Server failed", zap.Error(err))
	}
}
