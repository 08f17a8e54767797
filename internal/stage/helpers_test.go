package stage

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func float32FromLE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// writeTestWAV writes a PCM16 stereo 44.1kHz sine tone so the real
// decode path is exercised end to end.
func writeTestWAV(t *testing.T, dir, name string, seconds float64) {
	t.Helper()

	frames := int(seconds * SampleRate)
	dataLen := frames * 4

	buf := make([]byte, 44+dataLen)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], 2) // stereo
	binary.LittleEndian.PutUint32(buf[24:], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:], SampleRate*4)
	binary.LittleEndian.PutUint16(buf[32:], 4)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))

	for i := 0; i < frames; i++ {
		s := int16(0.4 * 32767 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
		binary.LittleEndian.PutUint16(buf[44+i*4:], uint16(s))
		binary.LittleEndian.PutUint16(buf[44+i*4+2:], uint16(s))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".wav"), buf, 0o644))
}

// writeSampleSet writes WAV files for the given asset names into dir.
func writeSampleSet(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		writeTestWAV(t, dir, name, 0.05)
	}
}
