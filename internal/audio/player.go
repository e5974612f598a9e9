// Package audio plays the client sound effects and optional background
// music through a single beep mixer.
package audio

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"

	"light-cycles/internal/config"
)

// SampleRate is the output rate of the speaker and every generated effect.
const SampleRate = beep.SampleRate(48000)

// Player implements client.Sounds on the system speaker.
// A Player that failed to initialize stays silent, so clients can always
// call it.
type Player struct {
	mu     sync.Mutex
	cfg    config.AudioConfig
	mixer  *beep.Mixer
	music  beep.StreamSeekCloser
	ready  bool
	played uint64
}

// NewPlayer creates a silent player. Call Init to open the speaker.
func NewPlayer(cfg config.AudioConfig) *Player {
	return &Player{
		cfg:   cfg,
		mixer: &beep.Mixer{},
	}
}

// Init opens the speaker and starts the music track if one is configured.
// A missing music file only disables music.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready || !p.cfg.Enabled {
		return nil
	}

	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.ready = true

	if p.cfg.MusicPath != "" {
		if err := p.loadMusic(p.cfg.MusicPath); err != nil {
			log.Printf("⚠️ Background music disabled: %v", err)
		}
	}
	return nil
}

// loadMusic decodes an OGG Vorbis track and loops it under the effects.
func (p *Player) loadMusic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		f.Close()
		return err
	}
	p.music = streamer

	var track beep.Streamer = beep.Loop(-1, streamer)
	if format.SampleRate != SampleRate {
		log.Printf("   Resampling music from %d Hz to %d Hz", format.SampleRate, SampleRate)
		track = beep.Resample(4, format.SampleRate, SampleRate, track)
	}

	speaker.Lock()
	p.mixer.Add(withVolume(track, p.cfg.MusicVolume))
	speaker.Unlock()

	log.Printf("✅ Background music loaded: %s", path)
	return nil
}

// Close stops every sound and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	if p.music != nil {
		p.music.Close()
		p.music = nil
	}
	speaker.Close()
	p.ready = false
}

// Played returns how many effects were queued since Init.
func (p *Player) Played() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

func (p *Player) play(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return
	}
	p.played++
	speaker.Lock()
	p.mixer.Add(withVolume(s, p.cfg.Volume))
	speaker.Unlock()
}

func (p *Player) Turn()             { p.play(TurnSound(SampleRate)) }
func (p *Player) Crash()            { p.play(CrashSound(SampleRate)) }
func (p *Player) Pickup()           { p.play(PickupSound(SampleRate)) }
func (p *Player) GameOver(tie bool) { p.play(GameOverSound(tie, SampleRate)) }
