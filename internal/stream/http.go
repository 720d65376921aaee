package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"
	"time"

	"github.com/satindergrewal/slotmix/internal/audio"
	"github.com/satindergrewal/slotmix/internal/frame"
)

// HTTPHandler serves a channel's program audio as a chunked MP3 stream. Each
// connection gets its own encoder process fed raw PCM, one tick at a time.
type HTTPHandler struct {
	broadcaster *Broadcaster
	name        string
	format      frame.Format
	bitrate     string

	// encoder starts the PCM -> MP3 process; replaced in tests.
	encoder func(ctx context.Context, bitrate string) *exec.Cmd
}

// NewHTTPHandler creates the audio output for a channel. name is sent as
// ICY-Name.
func NewHTTPHandler(b *Broadcaster, name string, format frame.Format) *HTTPHandler {
	return &HTTPHandler{
		broadcaster: b,
		name:        name,
		format:      format,
		bitrate:     "192k",
		encoder:     ffmpegMP3,
	}
}

func ffmpegMP3(ctx context.Context, bitrate string) *exec.Cmd {
	return exec.CommandContext(ctx, "ffmpeg",
		"-f", "s16le",
		"-ar", fmt.Sprint(audio.SampleRate),
		"-ac", fmt.Sprint(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	)
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := h.encoder(ctx, h.bitrate)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Printf("HTTP stream: stdin pipe error: %v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("HTTP stream: stdout pipe error: %v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("HTTP stream: encoder start error: %v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)
	log.Printf("HTTP listener %s connected (total: %d)", r.RemoteAddr, h.broadcaster.ListenerCount())

	hdr := w.Header()
	hdr.Set("Content-Type", "audio/mpeg")
	hdr.Set("Cache-Control", "no-cache, no-store")
	hdr.Set("Connection", "close")
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("ICY-Name", h.name)
	hdr.Set("X-Slotmix-Format", fmt.Sprintf("%dx%d", h.format.Width, h.format.Height))
	hdr.Set("X-Slotmix-Tick", audio.FrameDuration.String())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	fed := make(chan uint64, 1)
	go func() { fed <- feedPCM(ctx, listener, stdin) }()

	_, err = io.CopyBuffer(flushWriter{w, flusher}, stdout, make([]byte, 4096))
	cancel()
	ticks := <-fed
	cmd.Wait()

	log.Printf("HTTP listener %s disconnected after %s of program (%v)",
		r.RemoteAddr, time.Duration(ticks)*audio.FrameDuration, err)
}

// feedPCM writes one tick of program audio per frame to the encoder until
// the listener or ctx goes away, and returns how many ticks it wrote.
func feedPCM(ctx context.Context, l *Listener, w io.WriteCloser) uint64 {
	defer w.Close()

	var ticks uint64
	buf := make([]byte, 0, audio.FrameBytes)
	for {
		select {
		case <-ctx.Done():
			return ticks
		case <-l.Done():
			return ticks
		case f, ok := <-l.C:
			if !ok {
				return ticks
			}
			buf = audio.AppendSamples(buf[:0], tickAudio(f))
			if _, err := w.Write(buf); err != nil {
				return ticks
			}
			ticks++
		}
	}
}
