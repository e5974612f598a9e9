package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"light-cycles/internal/api"
	"light-cycles/internal/config"
	"light-cycles/internal/game"
)

func main() {
	loadDotEnv()

	log.Println("🏍️ ================================")
	log.Println("🏍️  LIGHT CYCLES - GAME SERVER")
	log.Println("🏍️ ================================")

	appConfig := config.Load()
	matchCfg := appConfig.Match
	serverCfg := appConfig.Server

	engine, err := game.NewEngine(game.EngineConfig{
		Match:            matchCfg,
		AutoRestartDelay: serverCfg.AutoRestartDelay,
	})
	if err != nil {
		log.Fatalf("❌ Invalid match configuration: %v", err)
	}
	log.Printf("🎮 Config: %s mode, %d TPS, %dx%d field, speed %.1f",
		matchCfg.Mode, matchCfg.TickRate, matchCfg.Field.Width, matchCfg.Field.Height, matchCfg.Cycle.Speed)

	startEventLog(engine, serverCfg.EventLogPath)

	api.InstrumentEngine(engine)
	debugServer := api.StartDebugServer(appConfig.Observability)

	server := api.NewServer(engine)

	engine.Start()
	log.Println("✅ Game Engine started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}

// startEventLog always runs the event log; an empty path keeps events in
// memory for /api/events only.
func startEventLog(engine *game.Engine, path string) {
	if err := engine.StartEventLog(path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
		return
	}
	if path != "" {
		log.Printf("📝 Event log: %s", path)
	}
}

// loadDotEnv reads ../.env, then .env. Missing files are fine.
func loadDotEnv() {
	if err := godotenv.Load("../.env"); err == nil {
		log.Println("✅ Loaded environment from ../.env")
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}
}
