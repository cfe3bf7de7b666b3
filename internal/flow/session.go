package flow

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
)

// SubcategoryNone is the placeholder a fresh form starts on; submitting while
// it is still selected is a validation failure, never a query.
const SubcategoryNone = "__none__"

type State string

const (
	StateAwaitingCategory    State = "awaiting_category"
	StateAwaitingSubcategory State = "awaiting_subcategory"
	StateAwaitingSubmit      State = "awaiting_submit"
	StatePosted              State = "posted"
	StateCancelled           State = "cancelled"
)

// Session is one user's walk through the selection form, stored by value;
// handlers load a copy, mutate it, and store it back.
type Session struct {
	Token       string
	Actor       string
	Destination string
	State       State
	Category    string
	Subcategory string
	Sort        internal.SortMode
	Stock       internal.StockFilter
	StartedAt   time.Time
	UpdatedAt   time.Time
}

func newSession(token, actor, destination string, now time.Time) Session {
	return Session{
		Token:       token,
		Actor:       actor,
		Destination: destination,
		State:       StateAwaitingCategory,
		Subcategory: SubcategoryNone,
		Sort:        internal.SortAlpha,
		Stock:       internal.StockInOnly,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

type sessionRegistry struct {
	m *xsync.MapOf[string, Session]
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{m: xsync.NewMapOf[string, Session]()}
}

func (r *sessionRegistry) get(token string) (Session, bool) {
	return r.m.Load(token)
}

func (r *sessionRegistry) put(sess Session) {
	r.m.Store(sess.Token, sess)
}

func (r *sessionRegistry) remove(token string) (Session, bool) {
	return r.m.LoadAndDelete(token)
}

func (r *sessionRegistry) size() int {
	return r.m.Size()
}

func (r *sessionRegistry) pruneOlderThan(cutoff time.Time) int {
	var stale []string
	r.m.Range(func(token string, sess Session) bool {
		if sess.UpdatedAt.Before(cutoff) {
			stale = append(stale, token)
		}
		return true
	})
	for _, token := range stale {
		r.m.Delete(token)
	}
	return len(stale)
}
