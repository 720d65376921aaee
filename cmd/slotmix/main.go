package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satindergrewal/slotmix/internal/api"
	"github.com/satindergrewal/slotmix/internal/channel"
	"github.com/satindergrewal/slotmix/internal/config"
	"github.com/satindergrewal/slotmix/internal/frame"
	"github.com/satindergrewal/slotmix/internal/playlist"
	"github.com/satindergrewal/slotmix/internal/producer"
	"github.com/satindergrewal/slotmix/internal/statsview"
	"github.com/satindergrewal/slotmix/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("slotmix starting up...")

	format := frame.Format{Width: cfg.Width, Height: cfg.Height}
	if format.Width <= 0 || format.Height <= 0 || cfg.Layers <= 0 {
		log.Fatalf("invalid channel: %dx%d with %d layers", format.Width, format.Height, cfg.Layers)
	}

	// Channel: one compositor ticking every layer at the frame rate
	ch := channel.New(1, cfg.Layers, format, cfg.AudioGain)
	go ch.Run(ctx)

	// Broadcaster: fan-out program frames to all outputs
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, ch.Frames())

	factory := &producer.Factory{
		MediaDir:         cfg.MediaDir,
		Format:           format,
		TransitionFrames: cfg.TransitionFrames,
	}

	webrtcHandler := stream.NewWebRTCHandler(broadcaster, ch.String(), cfg.OpusBitrate)

	apiServer := api.NewServer(ch, factory, broadcaster)
	apiServer.SetPeerCountFunc(webrtcHandler.PeerCount)

	// Playlist (optional -- keeps one layer fed from SLOTMIX_PLAYLIST)
	if len(cfg.Playlist) > 0 {
		items := make([]producer.Params, len(cfg.Playlist))
		for i, path := range cfg.Playlist {
			items[i] = producer.Params{Path: path}
		}
		sched := playlist.NewScheduler(ch, factory, playlist.Config{
			Layer:       cfg.PlaylistLayer,
			Items:       items,
			BufferAhead: cfg.BufferAhead,
			Loop:        cfg.PlaylistLoop,
		})
		apiServer.SetPlaylist(sched)
		go sched.Run(ctx)
		log.Printf("Playlist: %d items on layer %d (loop=%v)", len(items), cfg.PlaylistLayer, cfg.PlaylistLoop)
	} else {
		log.Println("Playlist not configured (set SLOTMIX_PLAYLIST to enable)")
	}

	if statsview.Available() {
		statsview.Launch(os.Stdout, cfg.StatsAddr)
	}

	// HTTP routes
	mux := http.NewServeMux()

	// Program outputs
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, "slotmix "+ch.String(), format))
	mux.Handle("/stream.mjpeg", stream.NewMJPEGHandler(broadcaster, format, 2, 75))
	mux.Handle("/offer", webrtcHandler)

	// Control API
	apiServer.Register(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	log.Printf("slotmix live on %s (%dx%d, %d layers, media %s)",
		addr, format.Width, format.Height, cfg.Layers, cfg.MediaDir)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
