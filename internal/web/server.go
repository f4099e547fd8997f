// Package web exposes the compression pipeline over HTTP: a small JSON API
// to start, observe and stop runs, plus a websocket stream of live progress.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"compressy/internal/config"
	"compressy/internal/pipeline"
	"compressy/internal/statistics"
)

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// Current run state
	runMutex     sync.RWMutex
	isRunning    bool
	cancelRun    context.CancelFunc
	currentStats *statistics.Statistics
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CompressRequest struct {
	SourceFolder string `json:"source_folder"`
	Recursive    bool   `json:"recursive"`
	VideoCRF     *int   `json:"video_crf,omitempty"`
	ImageQuality *int   `json:"image_quality,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, no origin policy
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/statistics", s.handleStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.runMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	s.runMutex.RUnlock()

	var statsData interface{}
	if stats != nil {
		statsData = statsPayload(stats)
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"statistics": statsData,
		},
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SourceFolder == "" {
		s.writeError(w, "Source folder is required", http.StatusBadRequest)
		return
	}
	if _, err := os.Stat(req.SourceFolder); os.IsNotExist(err) {
		s.writeError(w, "Source folder does not exist", http.StatusBadRequest)
		return
	}

	s.runMutex.Lock()
	if s.isRunning {
		s.runMutex.Unlock()
		s.writeError(w, "A compression run is already in progress", http.StatusConflict)
		return
	}

	cfg := *s.cfg
	cfg.SourceFolder = req.SourceFolder
	cfg.Recursive = req.Recursive
	if req.VideoCRF != nil {
		cfg.Video.CRF = *req.VideoCRF
	}
	if req.ImageQuality != nil {
		cfg.Image.Quality = *req.ImageQuality
	}
	if err := cfg.Validate(); err != nil {
		s.runMutex.Unlock()
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ffmpegPath, err := config.FindFFmpeg(cfg.FFmpegPath)
	if err != nil {
		s.runMutex.Unlock()
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.isRunning = true
	s.cancelRun = cancel
	s.currentStats = statistics.NewStatistics()
	s.runMutex.Unlock()

	go s.runCompressAsync(ctx, &cfg, ffmpegPath)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.runMutex.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.runMutex.Unlock()

	s.broadcastWSMessage("run_stopped", map[string]interface{}{
		"message": "Run stopped by user",
	})

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Stop requested",
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	dir, err := config.StateDir()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m := statistics.NewManager(dir)
	cum, err := m.LoadCumulative()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	history, err := m.LoadHistory()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"cumulative": cum,
			"history":    history,
		},
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) runCompressAsync(ctx context.Context, cfg *config.Config, ffmpegPath string) {
	s.broadcastWSMessage("run_started", map[string]interface{}{
		"source_folder": cfg.SourceFolder,
		"recursive":     cfg.Recursive,
	})

	runner := pipeline.NewRunner(cfg, ffmpegPath, s.log)
	runner.SetProgressFunc(func(p pipeline.Progress) {
		s.broadcastWSMessage("progress", map[string]interface{}{
			"index":   p.Index,
			"total":   p.Total,
			"file":    p.Path,
			"percent": p.Percent,
		})
	})

	run, err := runner.Run(ctx)

	s.runMutex.Lock()
	stats := s.currentStats
	s.runMutex.Unlock()

	if run != nil {
		stats.RecordRun(run)
	}
	stats.Finalize()

	s.runMutex.Lock()
	s.isRunning = false
	s.cancelRun = nil
	s.runMutex.Unlock()

	if err != nil {
		s.broadcastWSMessage("run_error", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if dir, derr := config.StateDir(); derr == nil {
		if rerr := statistics.NewManager(dir).RecordRun(stats); rerr != nil {
			s.log.WithError(rerr).Warn("Could not persist run statistics")
		}
	}

	s.broadcastWSMessage("run_completed", map[string]interface{}{
		"statistics": statsPayload(stats),
	})
}

func statsPayload(stats *statistics.Statistics) map[string]interface{} {
	return map[string]interface{}{
		"summary": stats.GetSummary(),
		"files": map[string]interface{}{
			"found":      stats.FilesFound,
			"compressed": stats.FilesCompressed,
			"skipped":    stats.FilesSkipped,
			"failed":     stats.FilesFailed,
		},
		"bytes": map[string]interface{}{
			"original":   stats.OriginalBytes,
			"compressed": stats.CompressedBytes,
			"saved":      stats.BytesSaved,
		},
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
