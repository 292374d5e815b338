package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Handle controls a running playback.
type Handle interface {
	// Stop halts the playback and waits until the output is released.
	// Calling Stop more than once is safe.
	Stop()
}

// errFormatMismatch is returned when a clip does not match the opened output.
var errFormatMismatch = errors.New("clip format differs from the audio output")

// statusPollInterval is how often a playback checks whether the clip ended.
const statusPollInterval = 10 * time.Millisecond

// voice is the subset of *oto.Player used by a playback.
type voice interface {
	Play()
	IsPlaying() bool
	Pause()
	Close() error
}

// output creates voices for PCM streams.
type output interface {
	NewVoice(r io.Reader) voice
}

// otoOutput adapts *oto.Context to output.
type otoOutput struct {
	ctx *oto.Context
}

func (o otoOutput) NewVoice(r io.Reader) voice {
	return o.ctx.NewPlayer(r)
}

// openOto opens the process-wide oto context for format.
func openOto(format Format) (output, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}

	// Wait for the hardware audio devices to be ready.
	<-ready

	return otoOutput{ctx: ctx}, nil
}

// Device plays clips on the system audio output.
type Device struct {
	mu sync.Mutex
	// out is opened on first use. oto allows a single context per process.
	out    output
	format Format
	clips  map[string]*Clip

	open func(Format) (output, error)
	load func(path string) (*Clip, error)
}

// NewDevice returns a device that opens the audio output lazily.
func NewDevice() *Device {
	return &Device{
		clips: make(map[string]*Clip),
		open:  openOto,
		load:  LoadClip,
	}
}

// Play starts playing the WAV file at path. With loop set the clip repeats
// until the handle is stopped.
//
//nolint:ireturn // Callers only need Stop.
func (d *Device) Play(path string, loop bool) (Handle, error) {
	clip, out, err := d.prepare(path)
	if err != nil {
		return nil, err
	}

	p := &playback{
		out:  out,
		data: clip.Data,
		loop: loop,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go p.run()

	return p, nil
}

func (d *Device) prepare(path string) (*Clip, output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	clip, ok := d.clips[path]
	if !ok {
		loaded, err := d.load(path)
		if err != nil {
			return nil, nil, err
		}

		clip = loaded
		d.clips[path] = clip
	}

	if d.out == nil {
		out, err := d.open(clip.Format)
		if err != nil {
			return nil, nil, err
		}

		d.out = out
		d.format = clip.Format
	}

	if clip.Format.SampleRate != d.format.SampleRate || clip.Format.Channels != d.format.Channels {
		return nil, nil, fmt.Errorf("%s: %w", path, errFormatMismatch)
	}

	return clip, d.out, nil
}

// playback feeds one clip to the output until it ends or is stopped.
type playback struct {
	out  output
	data []byte
	loop bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (p *playback) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})

	<-p.done
}

func (p *playback) run() {
	defer close(p.done)

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		v := p.out.NewVoice(bytes.NewReader(p.data))
		v.Play()

		for v.IsPlaying() {
			select {
			case <-p.stop:
				v.Pause()
				_ = v.Close()

				return
			case <-ticker.C:
			}
		}

		_ = v.Close()

		if !p.loop {
			return
		}

		select {
		case <-p.stop:
			return
		default:
		}
	}
}
