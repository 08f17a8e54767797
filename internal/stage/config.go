package stage

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Audio format shared by the mixer, the synthesizer, and asset decoding.
const (
	SampleRate   = 44100
	ChannelCount = 2
	BitDepth     = 0 // 32-bit float (oto.FormatFloat32LE)
)

// Window defaults.
const (
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 800

	// Below this framebuffer width the chapter layouts switch to the
	// narrow variant so the orb/knot stay clear of the text column.
	NarrowViewportWidth = 900
)

// Config is runtime configuration, parsed from LUMEN_* env vars.
type Config struct {
	AssetDir      string  `env:"LUMEN_ASSET_DIR" envDefault:"assets/sound"`
	WindowWidth   int     `env:"LUMEN_WINDOW_WIDTH" envDefault:"1280"`
	WindowHeight  int     `env:"LUMEN_WINDOW_HEIGHT" envDefault:"800"`
	MasterVolume  float64 `env:"LUMEN_MASTER_VOLUME" envDefault:"0.9"`
	Accent        string  `env:"LUMEN_ACCENT" envDefault:""`
	ReducedMotion bool    `env:"LUMEN_REDUCED_MOTION" envDefault:"false"`
	MemoryGB      int     `env:"LUMEN_MEMORY_GB" envDefault:"8"`
	LogLevel      string  `env:"LUMEN_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses the environment. A bad LogLevel degrades to info
// rather than failing boot.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = DefaultWindowWidth
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = DefaultWindowHeight
	}
	c.MasterVolume = clampF(c.MasterVolume, 0, 1)
	return c, nil
}

// ApplyLogLevel configures the global logger from the config.
func (c Config) ApplyLogLevel() {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
