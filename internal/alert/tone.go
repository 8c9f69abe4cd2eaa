package alert

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate   = 24000
	channelCount = 1
)

// TonePlayer synthesizes and plays the timer chime through the system
// audio device via oto.
type TonePlayer struct {
	ctx    *oto.Context
	logger *log.Logger
	pcm    []byte

	mu     sync.Mutex
	active *oto.Player
}

// NewTonePlayer initializes the system audio context and pre-renders the
// chime. Returns an error when no audio device is available; callers fall
// back to silent alerts in that case.
func NewTonePlayer(logger *log.Logger) (*TonePlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	logger.Debug("audio context initialized", "rate", sampleRate, "channels", channelCount)
	return &TonePlayer{ctx: ctx, logger: logger, pcm: renderChime()}, nil
}

// Play plays the chime, blocking until it finishes or Stop is called.
func (p *TonePlayer) Play() error {
	player := p.ctx.NewPlayer(bytes.NewReader(p.pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts the chime if it is playing. Safe to call concurrently
// and when nothing is playing.
func (p *TonePlayer) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
	}
}

// renderChime renders three short 880 Hz beeps as 16-bit mono PCM, with a
// fade on each beep edge to avoid clicks.
func renderChime() []byte {
	const (
		freq     = 880.0
		beepLen  = 0.18
		gapLen   = 0.12
		beeps    = 3
		fadeLen  = 0.01
		amplitud = 0.4
	)

	beepSamples := int(beepLen * sampleRate)
	gapSamples := int(gapLen * sampleRate)
	fadeSamples := int(fadeLen * sampleRate)

	var buf bytes.Buffer
	for b := 0; b < beeps; b++ {
		for i := 0; i < beepSamples; i++ {
			v := amplitud * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
			if i < fadeSamples {
				v *= float64(i) / float64(fadeSamples)
			}
			if beepSamples-i < fadeSamples {
				v *= float64(beepSamples-i) / float64(fadeSamples)
			}
			binary.Write(&buf, binary.LittleEndian, int16(v*math.MaxInt16))
		}
		if b < beeps-1 {
			buf.Write(make([]byte, gapSamples*2))
		}
	}
	return buf.Bytes()
}
