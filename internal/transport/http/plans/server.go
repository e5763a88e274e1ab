package planshttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"kcourse/internal/gateway/objectstore"
	"kcourse/internal/itinerary"
	"kcourse/internal/logger"
	"kcourse/internal/store"
	"kcourse/internal/synthesis"
	"kcourse/internal/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultAddr        = ":8080"
	defaultMaxUploadMB = 10
	requestIDHeader    = "X-Request-ID"
	requestIDKey       = "request_id"
)

// Synthesizer runs the trip plan pipeline.
type Synthesizer interface {
	SynthesizeTripPlan(ctx context.Context, req *synthesis.TripRequest) (*types.TripPlan, error)
}

// Drafter produces a day-by-day itinerary.
type Drafter interface {
	Draft(ctx context.Context, req itinerary.Request) (map[string]any, error)
}

// ObjectRemover deletes a stored image by key.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

// Server serves the trip plan API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the HTTP server dependencies. Blobs is optional and
// only set when images are stored locally.
type ServerConfig struct {
	Addr        string
	Synthesizer Synthesizer
	Plans       store.PlanRepository
	Objects     ObjectRemover
	Blobs       objectstore.Getter
	Drafter     Drafter
	CORSOrigins []string
	MaxUploadMB int
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Synthesizer == nil || cfg.Plans == nil {
		return nil, errors.New("plans http server requires a synthesizer and a plan repository")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	router.Use(gin.Recovery(), requestID(), requestLogger(), corsMiddleware(cfg.CORSOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{
		synth:     cfg.Synthesizer,
		plans:     cfg.Plans,
		objects:   cfg.Objects,
		blobs:     cfg.Blobs,
		drafter:   cfg.Drafter,
		maxUpload: int64(cfg.MaxUploadMB) << 20,
	}
	h.register(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = allowed
	}
	return cors.New(conf)
}

// requestID tags every request with an ID, reusing the caller's when given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		c.Next()
		if query != "" {
			path += "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s rid=%s dur=%s", method, path, c.Writer.Status(), c.ClientIP(), c.GetString(requestIDKey), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("trip plan API listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
