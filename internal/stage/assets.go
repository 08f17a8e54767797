package stage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sirupsen/logrus"
)

// The 9 sample assets: one ambient loop plus two variants per cue kind.
var assetNames = []string{
	"ambient",
	"whoosh1", "whoosh2",
	"chime1", "chime2",
	"impact1", "impact2",
	"tick1", "tick2",
}

// decodeWAV converts a WAV file into an interleaved stereo float64 clip
// at SampleRate.
func decodeWAV(data []byte) ([]float64, error) {
	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	// 16-bit little-endian stereo.
	frames := len(pcm) / 4
	if frames == 0 {
		return nil, fmt.Errorf("empty stream")
	}
	clip := makeClip(frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		r := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		clip[i*2] = float64(l) / 32768.0
		clip[i*2+1] = float64(r) / 32768.0
	}
	return clip, nil
}

// loadSamples reads and decodes all assets concurrently. Failures are
// isolated per asset: one bad file never aborts the rest. Returns the
// decoded clips, the names that failed (in canonical order), and whether
// everything loaded.
func loadSamples(ctx context.Context, dir string, readFile func(string) ([]byte, error)) (map[string][]float64, []string, bool) {
	if readFile == nil {
		readFile = os.ReadFile
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		clips  = make(map[string][]float64, len(assetNames))
		failed = make(map[string]bool, len(assetNames))
	)
	for _, name := range assetNames {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if ctx.Err() != nil {
				mu.Lock()
				failed[name] = true
				mu.Unlock()
				return
			}
			path := filepath.Join(dir, name+".wav")
			data, err := readFile(path)
			if err == nil {
				var clip []float64
				clip, err = decodeWAV(data)
				if err == nil {
					mu.Lock()
					clips[name] = clip
					mu.Unlock()
					return
				}
			}
			logrus.WithError(err).WithField("asset", name).Warn("sample load failed, cue falls back to synthesis")
			mu.Lock()
			failed[name] = true
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	var missing []string
	for _, name := range assetNames {
		if failed[name] {
			missing = append(missing, name)
		}
	}
	return clips, missing, len(missing) == 0
}
