package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"light-cycles/internal/audio"
	"light-cycles/internal/client"
	"light-cycles/internal/config"
	"light-cycles/internal/terminal"
)

func main() {
	godotenv.Load(".env")

	// The screen owns stdout, so logs go to a file or nowhere
	if path := os.Getenv("LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			log.SetOutput(f)
			defer f.Close()
		}
	} else {
		log.SetOutput(io.Discard)
	}

	appConfig := config.Load()
	match := appConfig.Match

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	sounds := audio.NewPlayer(appConfig.Audio)
	if err := sounds.Init(); err != nil {
		// Non-fatal, the game runs without sound
		log.Printf("⚠️ Sound disabled: %v", err)
	}

	session := client.NewSession(match)
	session.Sounds = sounds

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	runErr := terminal.New(screen, session, match.TickDuration()).Run(ctx)
	stop()

	screen.Fini()
	sounds.Close()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
