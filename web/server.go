package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/host"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/status"
)

var (
	ServerHost     *host.Host
	ServerRecorder *renderer.Recorder
)

func NewRouter(h *host.Host, rec *renderer.Recorder) *mux.Router {
	ServerHost = h
	ServerRecorder = rec

	r := mux.NewRouter()
	r.HandleFunc("/json/config", HandlerJsonConfig).Methods("GET")
	r.HandleFunc("/json/frame", HandlerJsonFrame).Methods("GET")
	r.HandleFunc("/json/frame/{level}", HandlerJsonFrameLevel).Methods("GET")
	r.HandleFunc("/json/node/{level}/{index}", HandlerJsonNode).Methods("GET")
	r.HandleFunc("/action/reconfigure", HandlerActionReconfigure).Methods("POST")
	r.HandleFunc("/dump/frame.glb", HandlerDumpFrameGlb).Methods("GET")
	r.HandleFunc("/dump/frame.fbx", HandlerDumpFrameFbx).Methods("GET")
	r.HandleFunc("/dump/frame.txt", HandlerDumpFrameText).Methods("GET")
	r.HandleFunc("/dump/config.yaml", HandlerDumpConfig).Methods("GET")
	r.HandleFunc("/ws/status", status.Handler)
	return r
}

// StartServer serves until ctx is done
func StartServer(ctx context.Context, addr string, h *host.Host, rec *renderer.Recorder) error {
	var handler http.Handler = NewRouter(h, rec)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handler)
	handler = handlers.LoggingHandler(os.Stdout, handler)

	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[web] Shutdown: %v", err)
		}
	}()

	log.Printf("[web] Starting server %v", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "Failed to serve %v", addr)
	}
	log.Printf("[web] Server stopped")
	return nil
}
