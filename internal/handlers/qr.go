package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

// QRHandler renders a PNG QR code for a session's join link, so phones at
// the table can scan straight into the lobby. The session must exist.
func QRHandler(logger *logrus.Logger, srv *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id query parameter", http.StatusBadRequest)
			return
		}
		if _, found := srv.Registry.Get(id); !found {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		base := r.URL.Query().Get("base")
		if base == "" {
			base = "https://" + r.Host
		}
		png, err := qrcode.Encode(base+"/join/"+id, qrcode.Medium, 256)
		if err != nil {
			logger.Errorf("QR encode failed for session %s: %v", id, err)
			http.Error(w, "QR generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}
}
