package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
)

var ErrSessionNotFound = errors.New("flow: session not found")

type Service struct {
	store    *inventory.Store
	query    *inventory.QueryService
	gateway  chat.Gateway
	cfg      config.Config
	sessions *sessionRegistry
	log      *slog.Logger
}

func NewService(store *inventory.Store, query *inventory.QueryService, gateway chat.Gateway, cfg config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		query:    query,
		gateway:  gateway,
		cfg:      cfg,
		sessions: newSessionRegistry(),
		log:      log,
	}
}

// Start opens a fresh selection form. When the index has no categories yet it
// posts an ephemeral notice instead and returns no session.
func (f *Service) Start(ctx context.Context, actor, destination string) (*Session, error) {
	idx := f.store.Current()
	if len(idx.Categories) == 0 {
		if err := f.gateway.PostEphemeralNotice(ctx, destination, actor, indexNotReadyNotice); err != nil {
			return nil, err
		}
		return nil, nil
	}

	sess := newSession("", actor, destination, time.Now().UTC())
	token, err := f.gateway.OpenForm(ctx, renderForm(sess, idx, f.cfg.CategoryPriority, f.cfg.SubcategoryOptionCap))
	if err != nil {
		return nil, fmt.Errorf("open form: %w", err)
	}

	sess.Token = token
	f.sessions.put(sess)
	SessionEvents.WithLabelValues("started").Inc()
	f.log.Info("flow session started", "token", token, "actor", actor)
	return &sess, nil
}

func (f *Service) HandleCategorySelected(ctx context.Context, token, category string) error {
	sess, ok := f.sessions.get(token)
	if !ok {
		return ErrSessionNotFound
	}

	sess.Category = strings.ToUpper(strings.TrimSpace(category))
	sess.Subcategory = SubcategoryNone
	sess.State = StateAwaitingSubcategory
	sess.UpdatedAt = time.Now().UTC()

	form := renderForm(sess, f.store.Current(), f.cfg.CategoryPriority, f.cfg.SubcategoryOptionCap)
	if err := f.gateway.UpdateForm(ctx, token, form); err != nil {
		return fmt.Errorf("update form: %w", err)
	}

	f.sessions.put(sess)
	return nil
}

func (f *Service) HandleSubcategorySelected(_ context.Context, token, subcategory string) error {
	sess, ok := f.sessions.get(token)
	if !ok {
		return ErrSessionNotFound
	}

	value := strings.TrimSpace(subcategory)
	if value == SubcategoryNone || value == "" {
		sess.Subcategory = SubcategoryNone
		sess.State = StateAwaitingSubcategory
	} else {
		sess.Subcategory = strings.ToUpper(value)
		sess.State = StateAwaitingSubmit
	}
	sess.UpdatedAt = time.Now().UTC()
	f.sessions.put(sess)
	return nil
}

func (f *Service) HandleSortSelected(_ context.Context, token, value string) error {
	sess, ok := f.sessions.get(token)
	if !ok {
		return ErrSessionNotFound
	}

	mode, ok := internal.ParseSortMode(value)
	if !ok {
		return fmt.Errorf("unknown sort mode %q", value)
	}
	sess.Sort = mode
	sess.UpdatedAt = time.Now().UTC()
	f.sessions.put(sess)
	return nil
}

func (f *Service) HandleStockFilterSelected(_ context.Context, token, value string) error {
	sess, ok := f.sessions.get(token)
	if !ok {
		return ErrSessionNotFound
	}

	filter, ok := internal.ParseStockFilter(value)
	if !ok {
		return fmt.Errorf("unknown stock filter %q", value)
	}
	sess.Stock = filter
	sess.UpdatedAt = time.Now().UTC()
	f.sessions.put(sess)
	return nil
}

type SubmitResult struct {
	Messages    []string
	FieldErrors map[string]string
}

// HandleSubmit posts the query result and retires the session. Field errors
// keep the session alive and never reach the query service.
func (f *Service) HandleSubmit(ctx context.Context, token string) (SubmitResult, error) {
	sess, ok := f.sessions.get(token)
	if !ok {
		return SubmitResult{}, ErrSessionNotFound
	}

	fieldErrors := map[string]string{}
	if sess.Category == "" {
		fieldErrors["category"] = "Pick a category."
	}
	if sess.Subcategory == "" || sess.Subcategory == SubcategoryNone {
		fieldErrors["subcategory"] = "Pick a subcategory."
	}
	if len(fieldErrors) > 0 {
		sess.UpdatedAt = time.Now().UTC()
		f.sessions.put(sess)
		return SubmitResult{FieldErrors: fieldErrors}, nil
	}

	entries := f.query.Lookup(sess.Category, sess.Subcategory, sess.Sort, sess.Stock)

	var messages []string
	if len(entries) == 0 {
		messages = []string{noMatchesMessage(sess)}
	} else {
		messages = renderResultChunks(sess, entries, f.cfg.ResultChunkLines)
	}

	for _, msg := range messages {
		if err := f.gateway.PostMessage(ctx, sess.Destination, msg); err != nil {
			return SubmitResult{}, fmt.Errorf("post result: %w", err)
		}
	}

	f.sessions.remove(token)
	SessionEvents.WithLabelValues("posted").Inc()
	f.log.Info("flow session posted",
		"token", token,
		"category", sess.Category,
		"subcategory", sess.Subcategory,
		"variants", len(entries),
		"messages", len(messages))
	return SubmitResult{Messages: messages}, nil
}

// Cancel discards the session; the form is already gone on the chat side.
func (f *Service) Cancel(token string) bool {
	_, ok := f.sessions.remove(token)
	if ok {
		SessionEvents.WithLabelValues("cancelled").Inc()
	}
	return ok
}

func (f *Service) PruneStale(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	n := f.sessions.pruneOlderThan(time.Now().UTC().Add(-maxAge))
	if n > 0 {
		SessionEvents.WithLabelValues("pruned").Add(float64(n))
		f.log.Info("pruned stale flow sessions", "count", n)
	}
	return n
}

func (f *Service) ActiveSessions() int {
	return f.sessions.size()
}
