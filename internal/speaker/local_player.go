package speaker

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/hajimehoshi/go-mp3"

	"sonorium/internal/audio"
)

const (
	localQueueCapacity = 50
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 500 * time.Millisecond
)

// LocalStreamPlayer (C8) consumes a channel's HTTP MP3 stream and renders
// it to the local sound card, symmetric to a network speaker: it is just
// another ChannelClient consumer, except the output device is this
// machine's own audio hardware rather than a remote protocol.
type LocalStreamPlayer struct {
	streamURL string
	device    string

	mu      sync.Mutex
	volume  float64
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	queue chan []float32
}

// NewLocalStreamPlayer builds a player that will pull from streamURL once
// Start is called. device is the platform device name, empty for the
// system default.
func NewLocalStreamPlayer(streamURL, device string) *LocalStreamPlayer {
	return &LocalStreamPlayer{
		streamURL: streamURL,
		device:    device,
		volume:    1.0,
		queue:     make(chan []float32, localQueueCapacity),
	}
}

// SetVolume sets the render-time volume multiplier in [0,1].
func (p *LocalStreamPlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
}

func (p *LocalStreamPlayer) currentVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Start begins fetching the stream and rendering it, reconnecting with
// exponential backoff on transient errors up to maxReconnectDelay between
// attempts.
func (p *LocalStreamPlayer) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("local player: init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = audio.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	var pending []float32
	onSendFrames := func(pOutputSample, _ []byte, frameCount uint32) {
		vol := p.currentVolume()
		need := int(frameCount)
		for len(pending) < need {
			select {
			case block := <-p.queue:
				pending = append(pending, block...)
			default:
				pending = append(pending, make([]float32, need-len(pending))...)
			}
		}
		for i := 0; i < need; i++ {
			s := int16(pending[i] * float32(vol) * 32767)
			binary.LittleEndian.PutUint16(pOutputSample[i*2:], uint16(s))
		}
		pending = pending[need:]
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		ctx.Uninit()
		return fmt.Errorf("local player: init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		return fmt.Errorf("local player: start playback device: %w", err)
	}

	go func() {
		defer close(p.doneCh)
		defer device.Uninit()
		defer ctx.Uninit()
		p.fetchLoop()
	}()

	return nil
}

// fetchLoop reconnects to the HTTP stream with exponential backoff and
// pushes decoded, resampled PCM blocks into the render queue.
func (p *LocalStreamPlayer) fetchLoop() {
	delay := baseReconnectDelay
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		if err := p.streamOnce(); err != nil {
			log.Printf("[local-player] %s: %v, retrying in %s", p.streamURL, err, delay)
		} else {
			delay = baseReconnectDelay
			continue
		}

		select {
		case <-time.After(delay):
		case <-p.stopCh:
			return
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (p *LocalStreamPlayer) streamOnce() error {
	resp, err := http.Get(p.streamURL)
	if err != nil {
		return fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dec, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		return fmt.Errorf("new mp3 decoder: %w", err)
	}

	buf := make([]byte, 4*4096) // stereo 16-bit frames
	for {
		select {
		case <-p.stopCh:
			return nil
		default:
		}

		n, err := dec.Read(buf)
		if n > 0 {
			mono := decodeStereoFramesToMono(buf[:n])
			resampled := audio.ResampleLinear(mono, dec.SampleRate(), audio.SampleRate)
			select {
			case p.queue <- resampled:
			case <-p.stopCh:
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read mp3: %w", err)
		}
	}
}

func decodeStereoFramesToMono(pcm []byte) []float32 {
	n := len(pcm) / 4
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		mono[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}
	return mono
}

// Stop halts playback and releases the audio device.
func (p *LocalStreamPlayer) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh := p.stopCh
	doneCh := p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}
