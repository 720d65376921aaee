package stream

import (
	"bytes"
	"image"
	"image/jpeg"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/satindergrewal/slotmix/internal/frame"
)

// MJPEGHandler serves a channel's composited program video as a
// multipart/x-mixed-replace JPEG stream, which browsers play in an <img>.
type MJPEGHandler struct {
	broadcaster *Broadcaster
	format      frame.Format
	every       int // one picture per this many ticks
	quality     int
}

// NewMJPEGHandler creates the video preview output. every thins the tick
// rate (2 gives 25 pictures a second); quality is the JPEG quality 1-100.
func NewMJPEGHandler(b *Broadcaster, format frame.Format, every, quality int) *MJPEGHandler {
	if every < 1 {
		every = 1
	}
	return &MJPEGHandler{broadcaster: b, format: format, every: every, quality: quality}
}

func (h *MJPEGHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)
	log.Printf("MJPEG viewer %s connected", r.RemoteAddr)

	// an empty program is shown as black
	blank := image.NewRGBA(h.format.Bounds())
	opts := &jpeg.Options{Quality: h.quality}
	var buf bytes.Buffer
	ticks := 0

	for {
		select {
		case <-r.Context().Done():
			return
		case <-listener.Done():
			return
		case f, ok := <-listener.C:
			if !ok {
				return
			}
			ticks++
			if (ticks-1)%h.every != 0 {
				continue
			}

			img := f.Image()
			if img == nil {
				img = blank
			}
			buf.Reset()
			if err := jpeg.Encode(&buf, img, opts); err != nil {
				log.Printf("MJPEG: encode: %v", err)
				return
			}

			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(buf.Len())},
			})
			if err != nil {
				return
			}
			if _, err := buf.WriteTo(part); err != nil {
				log.Printf("MJPEG viewer %s disconnected", r.RemoteAddr)
				return
			}
			flusher.Flush()
		}
	}
}
