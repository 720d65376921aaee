// Package api exposes layer control and channel status over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/satindergrewal/slotmix/internal/channel"
	"github.com/satindergrewal/slotmix/internal/layer"
	"github.com/satindergrewal/slotmix/internal/playlist"
	"github.com/satindergrewal/slotmix/internal/producer"
	"github.com/satindergrewal/slotmix/internal/stream"
)

// Creator builds producers from request parameters.
type Creator interface {
	Create(p producer.Params) (producer.Producer, error)
}

// LoadRequest is the body of load and preview commands.
type LoadRequest struct {
	producer.Params
	Autoplay bool `json:"autoplay,omitempty"`
}

// Status is the body of GET /api/status and of every events message.
type Status struct {
	Channel   channel.Stats    `json:"channel"`
	Layers    []layer.Status   `json:"layers"`
	Listeners int              `json:"listeners"`
	Peers     int              `json:"webrtc_peers"`
	Playlist  *playlist.Status `json:"playlist,omitempty"`
}

// Server serves the control API for one channel.
type Server struct {
	channel     *channel.Channel
	creator     Creator
	broadcaster *stream.Broadcaster

	playlist *playlist.Scheduler
	peers    func() int

	commandTimeout time.Duration
	eventInterval  time.Duration
}

// NewServer creates the API for ch.
func NewServer(ch *channel.Channel, creator Creator, b *stream.Broadcaster) *Server {
	return &Server{
		channel:        ch,
		creator:        creator,
		broadcaster:    b,
		peers:          func() int { return 0 },
		commandTimeout: 5 * time.Second,
		eventInterval:  time.Second,
	}
}

// SetPlaylist attaches a playlist so its state shows up in status and skip
// is available.
func (s *Server) SetPlaylist(p *playlist.Scheduler) { s.playlist = p }

// SetPeerCountFunc reports WebRTC peers in status.
func (s *Server) SetPeerCountFunc(fn func() int) { s.peers = fn }

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/layers/{index}/{command}", s.handleLayer)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/thumbnail", s.handleThumbnail)
	mux.HandleFunc("/api/playlist/skip", s.handleSkip)
	mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid layer index", http.StatusBadRequest)
		return
	}
	// reject before any media is decoded
	if index < 0 || index >= s.channel.Layers() {
		http.Error(w, fmt.Sprintf("%v: %d", channel.ErrNoSuchLayer, index), http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.commandTimeout)
	defer cancel()

	command := r.PathValue("command")
	switch command {
	case "load", "preview":
		var req LoadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		// decode media here, never on the tick
		p, err := s.creator.Create(req.Params)
		if err != nil {
			log.Printf("API: %s layer %d: %v", command, index, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = s.channel.Exec(ctx, index, func(l *layer.Layer) {
			if command == "preview" {
				l.Preview(p)
			} else {
				l.Load(p, req.Autoplay)
			}
		})
		s.reply(ctx, w, index, err)
	case "play":
		s.reply(ctx, w, index, s.channel.Exec(ctx, index, (*layer.Layer).Play))
	case "pause":
		s.reply(ctx, w, index, s.channel.Pause(index))
	case "stop":
		s.reply(ctx, w, index, s.channel.Exec(ctx, index, (*layer.Layer).Stop))
	case "clear":
		s.reply(ctx, w, index, s.channel.Exec(ctx, index, (*layer.Layer).Clear))
	default:
		http.Error(w, "unknown command", http.StatusNotFound)
	}
}

// reply writes the layer's status after a command, or maps err to a status
// code.
func (s *Server) reply(ctx context.Context, w http.ResponseWriter, index int, err error) {
	var st layer.Status
	if err == nil {
		err = s.channel.Exec(ctx, index, func(l *layer.Layer) { st = l.Status() })
	}
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	writeJSON(w, map[string]any{"ok": true, "layer": st})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, channel.ErrNoSuchLayer):
		return http.StatusNotFound
	case errors.Is(err, channel.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.commandTimeout)
	defer cancel()

	st, err := s.status(ctx)
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	writeJSON(w, st)
}

func (s *Server) status(ctx context.Context) (Status, error) {
	layers, err := s.channel.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Channel:   s.channel.Stats(),
		Layers:    layers,
		Listeners: s.broadcaster.ListenerCount(),
		Peers:     s.peers(),
	}
	if s.playlist != nil {
		ps := s.playlist.Status()
		st.Playlist = &ps
	}
	return st, nil
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	img := s.broadcaster.Last().Image()
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	if err := png.Encode(w, img); err != nil {
		log.Printf("API: thumbnail: %v", err)
	}
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.playlist == nil {
		http.Error(w, "no playlist running", http.StatusNotFound)
		return
	}
	s.playlist.Skip()
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
