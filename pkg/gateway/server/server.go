// Package server wires configuration, the model registry, storage and the
// middleware chain into one running HTTP gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/backends"
	"github.com/bragi-audio/bragi/pkg/core/registry"
	"github.com/bragi-audio/bragi/pkg/core/voice"
	"github.com/bragi-audio/bragi/pkg/gateway/config"
	"github.com/bragi-audio/bragi/pkg/gateway/handlers"
	"github.com/bragi-audio/bragi/pkg/gateway/lifecycle"
	"github.com/bragi-audio/bragi/pkg/gateway/mw"
	"github.com/bragi-audio/bragi/pkg/gateway/ratelimit"
	"github.com/bragi-audio/bragi/pkg/gateway/store"
)

type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	store    *store.Store
	life     *lifecycle.Lifecycle
	httpSrv  *http.Server
}

// New opens storage, loads every configured model and assembles the HTTP
// stack. A model that fails to load is reported in listings with an error
// status instead of aborting startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, st *store.Store) (*Server, error) {
	backends.RegisterAll()

	reg := registry.New()
	loadModels(ctx, cfg, logger, reg)

	// Rebuild the custom voice projection so voices stored by a previous
	// run resolve again.
	voices, err := st.ListVoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("server: list custom voices: %w", err)
	}
	for _, v := range voices {
		if v.AdapterAlias != "" {
			reg.RegisterCustomVoice(v.Name, v.AdapterAlias)
		}
	}

	life := &lifecycle.Lifecycle{}
	h := &handlers.Handlers{
		Logger:           logger,
		Registry:         reg,
		Synth:            &voice.Synthesizer{Registry: reg, Voices: st},
		Keys:             st,
		Voices:           st,
		Life:             life,
		MaxFileSize:      cfg.MaxFileSizeBytes(),
		MaxFileSizeLabel: cfg.Server.MaxFileSize,
	}

	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Server.RateLimitRPS,
		Burst: cfg.Server.RateLimitBurst,
	})

	handler := buildChain(cfg, logger, limiter, &keyValidator{store: st}, routes(h))

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		store:    st,
		life:     life,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return srv, nil
}

// loadModels detects and loads every configured model, sorted by alias so
// ambiguous voice claims resolve the same way on every boot.
func loadModels(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *registry.Registry) {
	aliases := make([]string, 0, len(cfg.Models))
	for alias := range cfg.Models {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		m := cfg.Models[alias]

		det, ok := adapters.Detect(adapters.DetectConfig{Repo: m.Repo})
		if !ok {
			logger.Warn("no backend claims model", "alias", alias, "repo", m.Repo)
			reg.RegisterInfo(registry.ModelInfo{Alias: alias, Repo: m.Repo, Status: "unsupported"})
			continue
		}

		device := m.Device
		if device == "" || device == "auto" {
			device = cfg.Device
		}
		opts := adapters.LoadOptions{
			Endpoint:    m.Endpoint,
			ComputeType: m.ComputeType,
			BinaryPath:  m.BinaryPath,
		}
		info := registry.ModelInfo{
			Alias:     alias,
			ModelType: det.Kind,
			Repo:      m.Repo,
			Device:    device,
			Status:    "loaded",
		}

		switch det.Kind {
		case adapters.KindSTT:
			adapter := det.NewSTT()
			if err := adapter.Load(ctx, m.Repo, device, opts); err != nil {
				logger.Error("load model", "alias", alias, "backend", det.Name, "error", err)
				info.Status = "error"
				reg.RegisterInfo(info)
				continue
			}
			reg.RegisterSTT(alias, adapter, info)
		case adapters.KindTTS:
			adapter := det.NewTTS()
			if err := adapter.Load(ctx, m.Repo, device, opts); err != nil {
				logger.Error("load model", "alias", alias, "backend", det.Name, "error", err)
				info.Status = "error"
				reg.RegisterInfo(info)
				continue
			}
			reg.RegisterTTS(alias, adapter, info)
		}
		logger.Info("model ready", "alias", alias, "backend", det.Name, "device", device, "status", info.Status)
	}
}

func routes(h *handlers.Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/audio/speech", h.Speech)
	mux.HandleFunc("POST /v1/audio/transcriptions", h.Transcriptions)
	mux.HandleFunc("POST /v1/audio/translations", h.Translations)
	mux.HandleFunc("GET /v1/models", h.Models)

	mux.HandleFunc("GET /v1/audio/voices", h.ListVoices)
	mux.HandleFunc("POST /v1/audio/voices", h.CreateVoice)
	mux.HandleFunc("DELETE /v1/audio/voices/{id}", h.DeleteVoice)

	mux.HandleFunc("POST /v1/admin/keys", h.CreateKey)
	mux.HandleFunc("GET /v1/admin/keys", h.ListKeys)
	mux.HandleFunc("DELETE /v1/admin/keys/{id}", h.DeleteKey)

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	return mux
}

// buildChain applies the middleware outermost first: everything gets a
// request id and an access log line; recovery catches handler panics;
// CORS runs before auth so browser preflights never need credentials.
func buildChain(cfg *config.Config, logger *slog.Logger, limiter *ratelimit.Limiter, keys mw.KeyValidator, mux http.Handler) http.Handler {
	h := mw.RateLimit(limiter, mux)
	h = mw.Auth(keys, logger, h)
	h = mw.CORS(cfg.Server.CORSOrigins, h)
	h = mw.Recover(logger, h)
	h = mw.AccessLog(logger, h)
	h = mw.RequestID(h)
	return h
}

// keyValidator narrows the store to what the auth middleware needs.
type keyValidator struct {
	store *store.Store
}

func (v *keyValidator) ValidateKey(ctx context.Context, raw string) (string, string, error) {
	k, err := v.store.ValidateKey(ctx, raw)
	if err != nil {
		return "", "", err
	}
	if k == nil {
		return "", "", nil
	}
	return k.ID, k.Name, nil
}

func (v *keyValidator) TouchKey(ctx context.Context, keyID string) error {
	return v.store.TouchKey(ctx, keyID)
}

func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured grace period,
// then releases storage and every loaded model.
func (s *Server) Shutdown(ctx context.Context) error {
	s.life.SetDraining(true)

	grace := s.cfg.Server.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	err := s.httpSrv.Shutdown(drainCtx)

	s.store.Close()
	s.registry.UnloadAll()
	s.logger.Info("shutdown complete")
	return err
}
