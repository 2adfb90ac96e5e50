// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/nmoreno/gringo/internal/handlers"
	"github.com/nmoreno/gringo/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	srv := handlers.NewGameServer(logger, clockwork.NewRealClock())
	if secs := os.Getenv("TURN_TIMEOUT_SEC"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			srv.Registry.TurnTimeout = time.Duration(n) * time.Second
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handlers.WSHandler(logger, srv))
	mux.Handle("/session/qr", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.QRHandler(logger, srv),
	)))

	// Browser clients connect from arbitrary origins.
	handler := cors.AllowAll().Handler(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
