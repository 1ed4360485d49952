package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"dwinhmi/internal/ipc"
	"dwinhmi/internal/store"
	"dwinhmi/internal/termview"
)

// jobLister is the part of the database the API reads.
type jobLister interface {
	Jobs(limit int) ([]store.Job, error)
}

// WebServer serves the HTTP control API and the state WebSocket.
type WebServer struct {
	router    *gin.Engine
	events    chan<- ipc.Event
	history   jobLister
	mirror    *termview.Canvas
	publicURL string
	logger    *slog.Logger
}

// NewWebServer builds the router. history and mirror may be nil.
func NewWebServer(events chan<- ipc.Event, state *StateServer, history jobLister, mirror *termview.Canvas, publicURL string, logger *slog.Logger) *WebServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	ws := &WebServer{
		router:    router,
		events:    events,
		history:   history,
		mirror:    mirror,
		publicURL: publicURL,
		logger:    logger,
	}

	api := router.Group("/api")
	{
		api.GET("/state", ws.stateHandler)
		api.GET("/screen", ws.screenHandler)
		api.POST("/input", ws.inputHandler)
		api.POST("/notify", ws.notifyHandler)
		api.POST("/event", ws.eventHandler)
		api.GET("/history", ws.historyHandler)
		api.GET("/qr.png", ws.qrHandler)
	}
	if state != nil {
		state.Register(router, "/ws")
	}
	return ws
}

// Handler exposes the router for http.Server and tests.
func (ws *WebServer) Handler() http.Handler { return ws.router }

// Run serves on port until ctx is canceled.
func (ws *WebServer) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           ws.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ws.logger.Info("web listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// requestLogger logs each request at debug level through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// queue hands an event to the daemon loop without blocking.
func (ws *WebServer) queue(c *gin.Context, ev ipc.Event) {
	select {
	case ws.events <- ev:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "event queue full"})
	}
}

// stateHandler returns the controller snapshot
func (ws *WebServer) stateHandler(c *gin.Context) {
	snap, err := requestSnapshot(c.Request.Context(), ws.events, time.Second)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// screenHandler returns the last published frame as text
func (ws *WebServer) screenHandler(c *gin.Context) {
	if ws.mirror == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screen mirror"})
		return
	}
	lines := ws.mirror.Lines()
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"lines": lines, "frames": ws.mirror.Frames()})
		return
	}
	c.String(http.StatusOK, strings.Join(lines, "\n")+"\n")
}

// inputHandler accepts {"input": "cw", "count": 2}
func (ws *WebServer) inputHandler(c *gin.Context) {
	var req ipc.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if _, err := req.Inputs(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws.queue(c, req)
}

// notifyHandler accepts {"name": "homing_complete"}
func (ws *WebServer) notifyHandler(c *gin.Context) {
	var req ipc.Notify
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if _, err := req.Notification(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws.queue(c, req)
}

// eventHandler accepts a raw IPC envelope
func (ws *WebServer) eventHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := ipc.UnmarshalEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws.queue(c, ev)
}

// historyHandler lists recorded jobs, newest first
func (ws *WebServer) historyHandler(c *gin.Context) {
	if ws.history == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []store.Job{}})
		return
	}
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	jobs, err := ws.history.Jobs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// qrHandler renders a QR code of the web UI URL for pairing a phone
func (ws *WebServer) qrHandler(c *gin.Context) {
	url := ws.publicURL
	if url == "" {
		url = fmt.Sprintf("http://%s/", c.Request.Host)
	}
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		ws.logger.Warn("qr code generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
