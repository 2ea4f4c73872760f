package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/hachimi/api"
	"github.com/Neumenon/hachimi/envconfig"
	"github.com/Neumenon/hachimi/hachimi"
	"github.com/Neumenon/hachimi/history"
	"github.com/Neumenon/hachimi/logutil"
	"github.com/Neumenon/hachimi/version"
)

// maxRequestBytes bounds a translate request body.
const maxRequestBytes = 8 << 20

// Translator is the part of *hachimi.Translator the server uses.
type Translator interface {
	Translate(text string, role hachimi.Role, opts *hachimi.TranslateOptions) hachimi.Result
	Vocabulary() *hachimi.Vocabulary
	Config(override *hachimi.PartialWeights) (*hachimi.Config, error)
}

type Server struct {
	translator Translator
	history    *history.Store
}

// New returns a server around t. store may be nil to disable history.
func New(t Translator, store *history.Store) *Server {
	return &Server{translator: t, history: store}
}

func (s *Server) TranslateHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req api.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := hachimi.ParseRole(req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logutil.Trace("translate request", "role", role, "bytes", len(req.Text), "weights", req.Weights != nil)
	result := s.translator.Translate(req.Text, role, &hachimi.TranslateOptions{Weights: req.Weights})
	resp := api.TranslateResponse{
		OK:     result.OK,
		Output: result.Output,
		Error:  result.Error,
		Stats:  result.Stats,
	}

	if s.history != nil && !req.NoHistory && req.Text != "" {
		entry, err := s.history.Add(role, req.Text, result)
		if err != nil {
			slog.Warn("failed to record history", "error", err)
		} else {
			resp.HistoryID = entry.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HistoryHandler(c *gin.Context) {
	entries := []api.HistoryEntry{}
	if s.history != nil {
		entries = append(entries, s.history.List()...)
	}
	c.JSON(http.StatusOK, api.HistoryResponse{Entries: entries})
}

func (s *Server) ClearHistoryHandler(c *gin.Context) {
	if s.history != nil {
		if err := s.history.Clear(); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusOK)
}

// Vocab describes t's vocabulary and its default variant table.
func Vocab(t Translator) (api.VocabResponse, error) {
	cfg, err := t.Config(nil)
	if err != nil {
		return api.VocabResponse{}, err
	}

	vocab := t.Vocabulary()
	resp := api.VocabResponse{
		Weights:       cfg.Weights,
		CombosPerBase: cfg.CombosPerBase,
	}
	for _, cat := range []hachimi.Category{hachimi.CategoryBase, hachimi.CategoryOnomat, hachimi.CategorySymbol, hachimi.CategoryEmoji, hachimi.CategoryKaomoji} {
		pool := vocab.Pool(cat)
		resp.Pools = append(resp.Pools, api.PoolInfo{
			Category: cat.String(),
			Count:    pool.Len(),
			Entries:  pool.Entries(),
		})
	}
	for i := range vocab.LeadCount() {
		resp.LeadWords = append(resp.LeadWords, vocab.LeadWord(i))
	}
	return resp, nil
}

func (s *Server) VocabHandler(c *gin.Context) {
	resp, err := Vocab(s.translator)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Routes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowOrigins = envconfig.AllowOrigins

	r := gin.Default()
	r.Use(cors.New(config))

	r.POST("/api/translate", s.TranslateHandler)
	r.GET("/api/history", s.HistoryHandler)
	r.DELETE("/api/history", s.ClearHistoryHandler)
	r.GET("/api/vocab", s.VocabHandler)
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version})
	})

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Handle(method, "/", func(c *gin.Context) {
			c.String(http.StatusOK, "Hachimi is running")
		})
	}

	return r
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srvr := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srvr.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srvr.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Serve builds a translator and history store from the environment and
// serves on ln.
func Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("server config", "env", envconfig.Values())

	t, err := hachimi.New(hachimi.Options{
		Weights:         envconfig.Weights,
		MaxPayloadBytes: envconfig.MaxPayload,
	})
	if err != nil {
		return fmt.Errorf("create translator: %w", err)
	}

	var store *history.Store
	if !envconfig.NoHistory {
		store, err = history.Open(envconfig.HistoryPath, envconfig.HistoryLimit)
		if err != nil {
			return err
		}
		slog.Info("recording history", "path", store.Path(), "entries", store.Len())
	}

	slog.Info("Listening on "+ln.Addr().String(), "version", version.Version)
	return New(t, store).Serve(ctx, ln)
}
