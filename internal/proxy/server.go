// Package proxy serves YouTube pages with blocked videos already blacked out.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ytget/blackout"
	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/internal/metrics"
	"github.com/ytget/blackout/pkg/client"
	"github.com/ytget/blackout/youtube/scanner"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	defaultUpstream = "https://www.youtube.com"
	maxFilterBody   = 16 << 20
)

// Server is the filtering HTTP front end.
type Server struct {
	addr      string
	bo        *blackout.Blackout
	client    *client.Client
	upstream  string
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a server. A nil client uses client.New(); an empty
// upstream means www.youtube.com.
func NewServer(addr string, bo *blackout.Blackout, c *client.Client, upstream string) *Server {
	if addr == "" {
		addr = defaultAddr
	}
	if c == nil {
		c = client.New()
	}
	upstream = strings.TrimRight(upstream, "/")
	if upstream == "" {
		upstream = defaultUpstream
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		bo:        bo,
		client:    c,
		upstream:  upstream,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/blocklist", s.handleBlocklist)
	r.POST("/refresh", s.handleRefresh)
	r.POST("/filter", s.handleFilter)

	r.GET("/", s.handlePassThrough)
	r.GET("/watch", s.handlePassThrough)
	r.GET("/results", s.handlePassThrough)
	r.GET("/playlist", s.handlePassThrough)
	r.GET("/shorts/*id", s.handlePassThrough)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()
	logger.WithComponent(logger.ComponentProxy).Info("Proxy listening", map[string]interface{}{
		"addr":     listener.Addr().String(),
		"upstream": s.upstream,
	})

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithComponent(logger.ComponentProxy).Error("Proxy stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithComponent(logger.ComponentProxy).Debug("Request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	sess := s.bo.Session()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).String(),
		"playlist_id":    s.bo.PlaylistID(),
		"blocked_videos": sess.Blocklist().Videos.Len(),
		"fetching":       sess.Fetching(),
	})
}

func (s *Server) handleBlocklist(c *gin.Context) {
	bl := s.bo.Session().Blocklist()
	ids := bl.Videos.IDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"playlist_id": bl.PlaylistID,
		"video_ids":   ids,
		"channel":     bl.Channel,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	// The fetch outlives the request.
	started := s.bo.Session().Refresh(s.ctx)
	c.JSON(http.StatusAccepted, gin.H{"started": started})
}

func (s *Server) handleFilter(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url query parameter"})
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxFilterBody)
	s.filter(c, pageURL, body)
}

func (s *Server) handlePassThrough(c *gin.Context) {
	log := logger.WithComponent(logger.ComponentProxy)
	target := s.upstream + c.Request.URL.RequestURI()

	resp, err := s.client.Fetch(c.Request.Context(), target)
	if err != nil {
		log.Warn("Upstream fetch failed", map[string]interface{}{"url": target, "error": err.Error()})
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream fetch failed"})
		return
	}
	if !strings.Contains(resp.ContentType, "html") {
		c.Data(resp.StatusCode, resp.ContentType, resp.Body)
		return
	}
	s.filter(c, target, bytes.NewReader(resp.Body))
}

func (s *Server) filter(c *gin.Context, pageURL string, body io.Reader) {
	var out bytes.Buffer
	report, err := s.bo.Filter(c.Request.Context(), pageURL, body, &out)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrNotHTML) {
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	setReportHeaders(c, report)
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.Bytes())
}

func setReportHeaders(c *gin.Context, r scanner.Report) {
	c.Header("X-Blackout-Suppressed", strconv.Itoa(r.Suppressed()))
	c.Header("X-Blackout-Retitled", strconv.Itoa(r.Retitled()))
	c.Header("X-Blackout-Mutations", strconv.Itoa(r.Mutations))
}
