package main

import (
	"errors"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"

	"light-cycles/internal/audio"
	"light-cycles/internal/client"
	"light-cycles/internal/config"
	"light-cycles/internal/desktop"
)

func main() {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("✅ Loaded environment from .env")
	}

	appConfig := config.Load()
	match := appConfig.Match

	sounds := audio.NewPlayer(appConfig.Audio)
	if err := sounds.Init(); err != nil {
		log.Printf("⚠️ Sound disabled: %v", err)
	}
	defer sounds.Close()

	session := client.NewSession(match)
	session.Sounds = sounds

	ebiten.SetWindowTitle("Light Cycles")
	ebiten.SetWindowSize(match.Field.Width, match.Field.Height)
	ebiten.SetTPS(match.TickRate)
	if err := ebiten.RunGame(desktop.New(session, match.Field)); err != nil && !errors.Is(err, desktop.ErrQuit) {
		log.Fatal(err)
	}
}
