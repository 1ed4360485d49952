// Package buzzer plays the display's feedback tones on the host sound card.
package buzzer

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	SampleRate   = 22050
	ChannelCount = 1

	// amplitude keeps the square wave well below full scale.
	amplitude = 6000

	queueSize = 8
)

type tone struct {
	d  time.Duration
	hz int
}

// Buzzer queues tones and plays them one after another.
type Buzzer struct {
	ctx    *oto.Context
	logger *slog.Logger
	queue  chan tone
}

// New opens the default audio device. Call Run to start playback.
func New(logger *slog.Logger) (*Buzzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	logger.Debug("buzzer initialized", "rate", SampleRate)
	return &Buzzer{ctx: ctx, logger: logger, queue: make(chan tone, queueSize)}, nil
}

// Tone queues one beep. It never blocks; tones beyond the queue are dropped.
func (b *Buzzer) Tone(d time.Duration, hz int) {
	if d <= 0 || hz <= 0 {
		return
	}
	select {
	case b.queue <- tone{d: d, hz: hz}:
	default:
		b.logger.Debug("buzzer queue full, tone dropped", "hz", hz)
	}
}

// Run plays queued tones until ctx is cancelled.
func (b *Buzzer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-b.queue:
			b.play(t)
		}
	}
}

func (b *Buzzer) play(t tone) {
	player := b.ctx.NewPlayer(bytes.NewReader(SquareWave(t.d, t.hz, SampleRate)))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		b.logger.Warn("buzzer playback failed", "error", err)
	}
}

// SquareWave renders a mono signed 16-bit little-endian square wave.
func SquareWave(d time.Duration, hz, rate int) []byte {
	samples := int(int64(d) * int64(rate) / int64(time.Second))
	if samples <= 0 || hz <= 0 {
		return nil
	}
	half := rate / (2 * hz)
	if half < 1 {
		half = 1
	}

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude)
		if (i/half)%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}
