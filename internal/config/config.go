package config

import (
	"os"
	"strconv"
	"strings"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Channel
	Layers    int     // layers per channel
	Width     int     // video raster
	Height    int     // video raster
	AudioGain float64 // master gain applied by the mixer

	// Media
	MediaDir         string
	TransitionFrames int // default mix length in ticks

	// Playlist (optional, auto-played on start)
	Playlist      []string // media paths, relative to MediaDir
	PlaylistLayer int
	PlaylistLoop  bool
	BufferAhead   int // producers decoded and chained ahead

	// Outputs
	OpusBitrate int // WebRTC Opus bitrate in bps

	// Diagnostics (only served when built with -tags statsview)
	StatsAddr string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("SLOTMIX_PORT", 8080),

		Layers:    envInt("SLOTMIX_LAYERS", 10),
		Width:     envInt("SLOTMIX_WIDTH", 1280),
		Height:    envInt("SLOTMIX_HEIGHT", 720),
		AudioGain: envFloat("SLOTMIX_AUDIO_GAIN", 1.0),

		MediaDir:         envStr("SLOTMIX_MEDIA_DIR", "/media"),
		TransitionFrames: envInt("SLOTMIX_TRANSITION_FRAMES", 25),

		Playlist:      envList("SLOTMIX_PLAYLIST"),
		PlaylistLayer: envInt("SLOTMIX_PLAYLIST_LAYER", 0),
		PlaylistLoop:  envBool("SLOTMIX_PLAYLIST_LOOP", true),
		BufferAhead:   envInt("SLOTMIX_BUFFER_AHEAD", 2),

		OpusBitrate: envInt("SLOTMIX_OPUS_BITRATE", 128000),

		StatsAddr: envStr("SLOTMIX_STATS_ADDR", "localhost:12600"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
