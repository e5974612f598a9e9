package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// tone is a fixed length oscillator.
type tone struct {
	freq     float64
	phase    float64
	length   int
	position int
	wave     Wave
	rate     beep.SampleRate
	rng      *rand.Rand
}

// Tone returns a streamer of one note of the given wave.
// Noise is seeded so the same crash always sounds the same.
func Tone(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &tone{
		freq:   freq,
		length: rate.N(d),
		wave:   wave,
		rate:   rate,
		rng:    rand.New(rand.NewSource(int64(freq))),
	}
}

func (t *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if t.position >= t.length {
			return i, i > 0
		}

		var v float64
		switch t.wave {
		case WaveSine:
			v = math.Sin(2 * math.Pi * t.phase)
		case WaveSquare:
			v = 1
			if t.phase >= 0.5 {
				v = -1
			}
		case WaveSaw:
			v = 2 * (t.phase - 0.5)
		case WaveNoise:
			v = t.rng.Float64()*2 - 1
		}
		samples[i][0] = v
		samples[i][1] = v

		t.phase += t.freq / float64(t.rate)
		t.phase -= math.Floor(t.phase)
		t.position++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

// envelope fades a streamer in over attack samples and out over the last
// release samples of total.
type envelope struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

// Envelope shapes s with a linear attack and release. The result ends after
// d even if s runs longer.
func Envelope(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(d),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	if e.position >= e.total {
		return 0, false
	}
	if rest := e.total - e.position; len(samples) > rest {
		samples = samples[:rest]
	}

	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		switch {
		case e.attack > 0 && e.position < e.attack:
			gain = float64(e.position) / float64(e.attack)
		case e.release > 0 && e.position >= e.total-e.release:
			gain = float64(e.total-e.position) / float64(e.release)
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// withVolume scales s by a linear 0..1 volume on beep's log2 scale.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// note is one enveloped tone, the building block of every effect.
func note(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return Envelope(Tone(freq, d, wave, rate), d, 5*time.Millisecond, d/3, rate)
}

// TurnSound is a short blip played when a rider turns.
func TurnSound(rate beep.SampleRate) beep.Streamer {
	return withVolume(note(660, 35*time.Millisecond, WaveSquare, rate), 0.25)
}

// CrashSound is a burst of noise under a falling saw.
func CrashSound(rate beep.SampleRate) beep.Streamer {
	return beep.Mix(
		withVolume(note(0, 300*time.Millisecond, WaveNoise, rate), 0.6),
		withVolume(note(90, 300*time.Millisecond, WaveSaw, rate), 0.4),
	)
}

// PickupSound is a rising two-note chime.
func PickupSound(rate beep.SampleRate) beep.Streamer {
	return beep.Seq(
		note(880, 70*time.Millisecond, WaveSine, rate),
		note(1320, 110*time.Millisecond, WaveSine, rate),
	)
}

// GameOverSound is a falling arpeggio for a win and a flat drone for a tie.
func GameOverSound(tie bool, rate beep.SampleRate) beep.Streamer {
	if tie {
		return withVolume(note(220, 600*time.Millisecond, WaveSaw, rate), 0.5)
	}
	return beep.Seq(
		note(784, 120*time.Millisecond, WaveSquare, rate),
		note(659, 120*time.Millisecond, WaveSquare, rate),
		note(523, 120*time.Millisecond, WaveSquare, rate),
		note(392, 360*time.Millisecond, WaveSquare, rate),
	)
}
