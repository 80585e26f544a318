package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a health probe and a search endpoint over HTTP",
	Long: `Serve starts an HTTP server exposing:

  GET /healthz           index liveness (the stored schema)
  GET /search?q=&limit=  query-string search (Bleve engine only)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagIndex, "index", "", "Index name (default from config)")
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if flagIndex != "" {
		cfg.Index.Name = flagIndex
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}

	engine, opts, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(index.NewGateway(engine, opts...), cfg.Index.Name, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server_started", slog.String("addr", cfg.Server.Addr), slog.String("index", cfg.Index.Name))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("server_stopping")
	return srv.Shutdown(shutdownCtx)
}

// newRouter builds the HTTP handlers. They share one read-only engine.
func newRouter(gw *index.Gateway, name string, l *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(l))

	r.GET("/healthz", func(c *gin.Context) {
		schema, err := gw.GetSchema(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"index":  name,
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"index":  schema.Name,
			"fields": len(schema.Fields),
		})
	})

	r.GET("/search", func(c *gin.Context) {
		s, ok := gw.Engine().(searcher)
		if !ok {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "search is not supported by this engine"})
			return
		}
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 || limit > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}

		hits, err := s.Search(c.Request.Context(), name, q, limit)
		if err != nil {
			status := http.StatusInternalServerError
			if index.KindOf(err) == index.KindNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"query": q, "hits": hits})
	})

	return r
}

func requestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug("http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}
