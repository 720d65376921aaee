package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/satindergrewal/slotmix/internal/audio"
	"gopkg.in/hraban/opus.v2"
)

var errBadOffer = errors.New("bad offer")

var opusCodec = webrtc.RTPCodecCapability{
	MimeType:    webrtc.MimeTypeOpus,
	ClockRate:   audio.SampleRate,
	Channels:    audio.Channels,
	SDPFmtpLine: "minptime=10;useinbandfec=1;stereo=1",
}

// WebRTCHandler answers SDP offers with an audio-only peer connection that
// carries the channel's program audio as Opus, one packet per tick.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	api         *webrtc.API
	streamID    string
	bitrate     int

	mu    sync.Mutex
	peers map[string]*peer
}

// peer is one monitoring session.
type peer struct {
	id    string
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample
	enc   *opus.Encoder
	done  chan struct{}
	once  sync.Once
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.pc.Close()
	})
}

// NewWebRTCHandler creates the monitoring output for the channel streamID,
// encoding at bitrate bps.
func NewWebRTCHandler(b *Broadcaster, streamID string, bitrate int) *WebRTCHandler {
	m := &webrtc.MediaEngine{}
	// the program is audio only, so Opus is the only codec offered
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: opusCodec,
		PayloadType:        111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		log.Printf("WebRTC: register opus: %v, using default codecs", err)
		m = &webrtc.MediaEngine{}
		if err := m.RegisterDefaultCodecs(); err != nil {
			log.Printf("WebRTC: register default codecs: %v", err)
		}
	}

	return &WebRTCHandler{
		broadcaster: b,
		api:         webrtc.NewAPI(webrtc.WithMediaEngine(m)),
		streamID:    streamID,
		bitrate:     bitrate,
		peers:       make(map[string]*peer),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	p, err := h.connect(offer)
	if err != nil {
		log.Printf("WebRTC: %v", err)
		code := http.StatusInternalServerError
		if errors.Is(err, errBadOffer) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}

	h.mu.Lock()
	h.peers[p.id] = p
	total := len(h.peers)
	h.mu.Unlock()
	log.Printf("WebRTC peer %s connected to %s (total: %d)", p.id, h.streamID, total)

	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			h.drop(p)
		}
	})
	go h.pump(p)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p.pc.LocalDescription())
}

// connect builds the peer connection for offer and waits for ICE gathering
// so the answer carries every candidate.
func (h *WebRTCHandler) connect(offer webrtc.SessionDescription) (*peer, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(h.bitrate); err != nil {
		log.Printf("WebRTC: opus bitrate %d: %v", h.bitrate, err)
	}

	pc, err := h.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("peer connection: %w", err)
	}
	fail := func(format string, err error) (*peer, error) {
		pc.Close()
		return nil, fmt.Errorf(format, err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(opusCodec, "program", h.streamID)
	if err != nil {
		return fail("audio track: %w", err)
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		return fail("add track: %w", err)
	}
	go drainRTCP(sender)

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("%w: %v", errBadOffer, err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail("set local description: %w", err)
	}
	<-gathered

	return &peer{
		id:    uuid.NewString()[:8],
		pc:    pc,
		track: track,
		enc:   enc,
		done:  make(chan struct{}),
	}, nil
}

// drainRTCP reads receiver reports so the interceptors keep running.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// pump encodes one Opus packet per program tick until the peer goes away.
func (h *WebRTCHandler) pump(p *peer) {
	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	packet := make([]byte, 4000)
	for {
		select {
		case <-p.done:
			return
		case <-listener.Done():
			return
		case f, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := p.enc.Encode(tickAudio(f), packet)
			if err != nil {
				log.Printf("WebRTC peer %s: opus encode: %v", p.id, err)
				continue
			}
			if err := p.track.WriteSample(media.Sample{Data: packet[:n], Duration: audio.FrameDuration}); err != nil {
				h.drop(p)
				return
			}
		}
	}
}

func (h *WebRTCHandler) drop(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p.id]
	delete(h.peers, p.id)
	remaining := len(h.peers)
	h.mu.Unlock()

	p.close()
	if ok {
		log.Printf("WebRTC peer %s disconnected (remaining: %d)", p.id, remaining)
	}
}
