package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readFrames pulls n frames through the mixer's io.Reader side.
func readFrames(t *testing.T, m *mixer, n int) []byte {
	t.Helper()
	buf := make([]byte, n*8)
	got, err := m.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), got)
	return buf
}

func TestMixerStartAmbientOnlyOnce(t *testing.T) {
	m, err := newMixer(1)
	require.NoError(t, err)

	clip := makeClip(SampleRate) // 1s of silence is fine here
	assert.True(t, m.startAmbient(clip))
	assert.False(t, m.startAmbient(clip), "second ambient must be refused")
	assert.True(t, m.hasAmbient())
}

func TestMixerPlayClip(t *testing.T) {
	m, err := newMixer(2)
	require.NoError(t, err)

	assert.False(t, m.playClip(nil, 1, 1), "empty clip refused")
	assert.True(t, m.playClip(synthTick(), 0.35, 1))
	assert.True(t, m.playClip(synthTick(), 0.35, 1.04))
	assert.Equal(t, 2, m.activeEffects())

	// A tick lasts 0.07s; after 0.2s both one-shots are retired.
	readFrames(t, m, int(0.2*SampleRate))
	assert.Equal(t, 0, m.activeEffects())
	assert.True(t, m.hasAmbient() == false)
}

func TestMixerMasterRamp(t *testing.T) {
	m, err := newMixer(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.masterGain())

	m.rampFromZero(masterLevel, 0.01)
	readFrames(t, m, 2048)
	assert.InDelta(t, masterLevel, m.masterGain(), 1e-9, "ramp must land exactly on target")
}

func TestMixerRampRestartsFromZero(t *testing.T) {
	m, err := newMixer(4)
	require.NoError(t, err)

	m.rampFromZero(masterLevel, 0)
	assert.InDelta(t, masterLevel, m.masterGain(), 1e-9)

	// A second ramp restarts at silence, it never pops from the old level.
	m.rampFromZero(masterLevel, 0.5)
	assert.Equal(t, 0.0, m.masterGain())
}

func TestMixerKill(t *testing.T) {
	m, err := newMixer(5)
	require.NoError(t, err)
	require.True(t, m.startAmbient(makeClip(100)))
	m.rampFromZero(masterLevel, 0)

	m.kill()
	assert.False(t, m.hasAmbient())
	assert.Equal(t, 0.0, m.masterGain())

	// Late arrivals (loads finishing after teardown) are rejected.
	assert.False(t, m.playClip(synthTick(), 1, 1))
	assert.False(t, m.startAmbient(makeClip(100)))

	// The reader keeps producing silence so the player never starves.
	buf := readFrames(t, m, 256)
	for _, b := range buf {
		assert.Zero(t, b)
	}
}

func TestMixerReadOutputBounded(t *testing.T) {
	m, err := newMixer(6)
	require.NoError(t, err)
	m.rampFromZero(masterLevel, 0)
	require.True(t, m.playClip(synthImpact(1), 0.9, 1))
	require.True(t, m.playClip(synthChime(), 0.55, 1))

	buf := readFrames(t, m, 4096)
	for i := 0; i < len(buf); i += 4 {
		s := float32FromLE(buf[i:])
		assert.LessOrEqual(t, abs32(s), float32(1.0))
	}
}

func TestSourcePitchStep(t *testing.T) {
	clip := makeClip(100)
	for i := 0; i < 100; i++ {
		putStereo(clip, i, 0.5)
	}
	fast := &source{clip: clip, step: 2, gain: 1}
	for i := 0; i < 51; i++ {
		fast.next()
	}
	assert.True(t, fast.done, "double step halves the playback time")

	loop := &source{clip: clip, step: 1, gain: 1, loop: true}
	for i := 0; i < 250; i++ {
		l, _ := loop.next()
		assert.InDelta(t, 0.5, l, 1e-9)
	}
	assert.False(t, loop.done)
}
