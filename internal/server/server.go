// Package server exposes the HTTP API and the live WebSocket stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"energy-flow-monitor-go/internal/broadcast"
	"energy-flow-monitor-go/internal/logger"
	"energy-flow-monitor-go/internal/models"
	"energy-flow-monitor-go/internal/query"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// timeLayouts are the timestamp formats accepted on query parameters and
// anomaly submissions.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Server wires the broadcaster and the query service to gin routes.
type Server struct {
	bc         *broadcast.Broadcaster
	svc        *query.Service
	httpServer *http.Server
}

// New creates the server listening on addr.
func New(addr string, bc *broadcast.Broadcaster, svc *query.Service) *Server {
	s := &Server{bc: bc, svc: svc}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleRoot)
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", s.handleStream)
	router.GET("/api/history", s.handleHistory)
	router.GET("/api/anomalies", s.handleAnomalyQuery)
	router.POST("/api/anomalies", s.handleAnomalySubmit)
	router.GET("/api/forecast", s.handleForecast)

	// No WriteTimeout here: the WebSocket stream lives on this server and
	// must be allowed to stay open indefinitely.
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	logger.S().Infof("server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Energy Flow Monitor API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStream upgrades the connection and subscribes it as an observer.
// One message per tick is pushed until the client goes away.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.S().Warnf("websocket upgrade failed: %v", err)
		return
	}

	obs := s.bc.Subscribe()
	go s.streamWritePump(conn, obs)
	go s.streamReadPump(conn, obs)
}

// streamWritePump pushes snapshots to one client. A write failure isolates
// and removes only this observer.
func (s *Server) streamWritePump(conn *websocket.Conn, obs *broadcast.Observer) {
	defer conn.Close()
	for snap := range obs.Snapshots() {
		if err := conn.WriteJSON(snap); err != nil {
			logger.S().Debugf("observer %s write failed: %v", obs.ID, err)
			s.bc.Unsubscribe(obs)
			return
		}
	}
	// Queue closed by Unsubscribe; send a normal close frame.
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// streamReadPump discards client messages and detects disconnects. The
// core stream contract is server-push only.
func (s *Server) streamReadPump(conn *websocket.Conn, obs *broadcast.Observer) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.bc.Unsubscribe(obs)
			return
		}
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	filter := models.HistoryFilter{
		Kind:  c.Query("energy_type"),
		Route: c.Query("route_name"),
	}

	var err error
	if filter.Start, err = parseTimeParam(c.Query("start")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "start", Reason: "unrecognized timestamp"})
		return
	}
	if filter.End, err = parseTimeParam(c.Query("end")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "end", Reason: "unrecognized timestamp"})
		return
	}

	records, err := s.svc.History(c.Request.Context(), filter)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (s *Server) handleAnomalyQuery(c *gin.Context) {
	var filter models.AnomalyFilter
	var err error

	if filter.Month, err = parseIntParam(c.Query("month")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "month", Reason: "must be an integer"})
		return
	}
	if filter.Day, err = parseIntParam(c.Query("day")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "day", Reason: "must be an integer"})
		return
	}
	if filter.Start, err = parseTimeParam(c.Query("start")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "start", Reason: "unrecognized timestamp"})
		return
	}
	if filter.End, err = parseTimeParam(c.Query("end")); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "end", Reason: "unrecognized timestamp"})
		return
	}

	records, err := s.svc.Anomalies(c.Request.Context(), filter)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// anomalySubmission is the wire shape of an anomaly POST.
type anomalySubmission struct {
	Timestamp  string   `json:"timestamp"`
	EnergyType string   `json:"energy_type"`
	RouteName  string   `json:"route_name"`
	Value      *float64 `json:"value"`
}

func (s *Server) handleAnomalySubmit(c *gin.Context) {
	var req anomalySubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, &models.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}
	if req.Value == nil {
		s.errorResponse(c, &models.ValidationError{Field: "value", Reason: "required"})
		return
	}

	ts, err := parseTimeParam(req.Timestamp)
	if err != nil || ts == nil {
		s.errorResponse(c, &models.ValidationError{Field: "timestamp", Reason: "required, unrecognized format"})
		return
	}

	rec := models.AnomalyRecord{
		Timestamp: *ts,
		Kind:      models.Kind(req.EnergyType),
		RouteName: req.RouteName,
		Value:     *req.Value,
	}
	if err := s.svc.RecordAnomaly(c.Request.Context(), rec); err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleForecast(c *gin.Context) {
	kind := c.Query("energy_type")
	route := c.Query("route_name")
	if kind == "" {
		s.errorResponse(c, &models.ValidationError{Field: "energy_type", Reason: "required"})
		return
	}
	if route == "" {
		s.errorResponse(c, &models.ValidationError{Field: "route_name", Reason: "required"})
		return
	}

	predictions, err := s.svc.Forecast(c.Request.Context(), kind, route)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecast": predictions})
}

// errorResponse maps service errors onto status codes and the {"error"}
// wire shape. Errors are surfaced, never swallowed, and never crash the
// process.
func (s *Server) errorResponse(c *gin.Context, err error) {
	var ve *models.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.S().Errorf("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseTimeParam parses an optional timestamp parameter. Empty means "no
// restriction" and returns (nil, nil).
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized timestamp format")
}

// parseIntParam parses an optional integer parameter. Empty returns 0.
func parseIntParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
