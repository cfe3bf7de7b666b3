package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/flow"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
	"github.com/nicholascarismo/inventory-checker-bot/internal/scheduler"
)

const janitorPeriod = time.Minute

type Server struct {
	cfg     config.Config
	store   *inventory.Store
	flow    *flow.Service
	sched   *scheduler.Service
	gateway chat.Gateway
	log     *slog.Logger
}

func NewServer(cfg config.Config, store *inventory.Store, flowSvc *flow.Service, sched *scheduler.Service, gateway chat.Gateway, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, store: store, flow: flowSvc, sched: sched, gateway: gateway, log: log}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/commands", func(w http.ResponseWriter, r *http.Request) {
		s.handleCommands(ctx, w, r)
	})
	mux.HandleFunc("/interactions", s.handleInteractions)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.cfg.BotListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.runJanitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("bot server listening", "addr", s.cfg.BotListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) runJanitor(ctx context.Context) {
	ttl := time.Duration(s.cfg.SessionTTLMin) * time.Minute
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(janitorPeriod):
		}
		s.flow.PruneStale(ttl)
	}
}

type commandRequest struct {
	Command     string `json:"command"`
	Actor       string `json:"actor"`
	Destination string `json:"destination"`
}

// Manual refreshes are acknowledged immediately and finish on the daemon's
// context, not the request's.
func (s *Server) handleCommands(daemonCtx context.Context, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "POST only"})
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad request body"})
		return
	}
	if req.Destination == "" {
		req.Destination = s.cfg.ChatDefaultChannel
	}

	switch strings.ToLower(strings.TrimSpace(req.Command)) {
	case "check-stock":
		sess, err := s.flow.Start(r.Context(), req.Actor, req.Destination)
		if err != nil {
			s.log.Error("flow start failed", "actor", req.Actor, "err", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": "could not open the form"})
			return
		}
		if sess == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "note": "index not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "formToken": sess.Token})

	case "refresh-index":
		actor, destination := req.Actor, req.Destination
		s.sched.TriggerManual(daemonCtx, func(err error, idx *inventory.Index) {
			text := ""
			if err != nil {
				text = fmt.Sprintf("Inventory refresh failed: %v", err)
			} else {
				text = fmt.Sprintf("Inventory refresh complete: %d variants across %d categories.",
					idx.VariantCount(), len(idx.Categories))
			}
			if nerr := s.gateway.PostEphemeralNotice(daemonCtx, destination, actor, text); nerr != nil {
				s.log.Error("refresh follow-up notice failed", "err", nerr)
			}
		})
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "note": "refresh started"})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": fmt.Sprintf("unknown command %q", req.Command)})
	}
}

type interactionRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
	Value  string `json:"value"`
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "POST only"})
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad request body"})
		return
	}

	ctx := r.Context()
	var err error
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "category":
		err = s.flow.HandleCategorySelected(ctx, req.Token, req.Value)
	case "subcategory":
		err = s.flow.HandleSubcategorySelected(ctx, req.Token, req.Value)
	case "sort":
		err = s.flow.HandleSortSelected(ctx, req.Token, req.Value)
	case "stock":
		err = s.flow.HandleStockFilterSelected(ctx, req.Token, req.Value)
	case "submit":
		res, serr := s.flow.HandleSubmit(ctx, req.Token)
		if serr != nil {
			err = serr
			break
		}
		if len(res.FieldErrors) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "fieldErrors": res.FieldErrors})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "posted": len(res.Messages)})
		return
	case "cancel":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "cancelled": s.flow.Cancel(req.Token)})
		return
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": fmt.Sprintf("unknown action %q", req.Action)})
		return
	}

	if errors.Is(err, flow.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "session not found"})
		return
	}
	if err != nil {
		s.log.Error("interaction failed", "action", req.Action, "token", req.Token, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	idx := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"indexVersion":   idx.Version,
		"indexBuiltAt":   idx.BuiltAt,
		"categories":     len(idx.Categories),
		"variants":       idx.VariantCount(),
		"activeSessions": s.flow.ActiveSessions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
