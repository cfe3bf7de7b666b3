package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
)

type postedNotice struct {
	destination string
	actor       string
	text        string
}

type fakeGateway struct {
	opened    []chat.FormSpec
	updated   []chat.FormSpec
	messages  []string
	notices   []postedNotice
	openErr   error
	postErr   error
	nextToken int
}

func (g *fakeGateway) OpenForm(_ context.Context, form chat.FormSpec) (string, error) {
	g.opened = append(g.opened, form)
	if g.openErr != nil {
		return "", g.openErr
	}
	g.nextToken++
	return fmt.Sprintf("F%03d", g.nextToken), nil
}

func (g *fakeGateway) UpdateForm(_ context.Context, _ string, form chat.FormSpec) error {
	g.updated = append(g.updated, form)
	return nil
}

func (g *fakeGateway) PostMessage(_ context.Context, _ string, text string) error {
	if g.postErr != nil {
		return g.postErr
	}
	g.messages = append(g.messages, text)
	return nil
}

func (g *fakeGateway) PostEphemeralNotice(_ context.Context, destination, actor, text string) error {
	g.notices = append(g.notices, postedNotice{destination, actor, text})
	return nil
}

func fixtureIndex() *inventory.Index {
	idx := inventory.NewEmptyIndex()
	idx.Version = "test"
	for _, c := range []string{"BRAKE", "TRIM", "WHEEL"} {
		idx.Categories[c] = struct{}{}
	}
	idx.Subcategories["TRIM"] = map[string]struct{}{"FORD": {}, "GMC": {}}
	idx.Subcategories["BRAKE"] = map[string]struct{}{"FORD": {}}
	idx.Subcategories["WHEEL"] = map[string]struct{}{"GMC": {}}
	idx.InStock[inventory.Key{Category: "TRIM", Subcategory: "FORD"}] = []internal.VariantEntry{
		{SKU: "C-FORD-TRIM-001", Suffix: "001", Available: 5},
		{SKU: "C-FORD-TRIM-002", Suffix: "002", Available: 2},
		{SKU: "C-FORD-TRIM-003", Suffix: "003", Available: 9},
		{SKU: "C-FORD-TRIM-004", Suffix: "004", Available: 1},
		{SKU: "C-FORD-TRIM-005", Suffix: "005", Available: 7},
	}
	return idx
}

func testService(t *testing.T, idx *inventory.Index, gw chat.Gateway, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if mutate != nil {
		mutate(&cfg)
	}

	store := inventory.NewStore()
	if idx != nil {
		store.Replace(idx)
	}
	query := inventory.NewQueryService(store, 0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, query, gw, cfg, log)
}

func fieldByID(t *testing.T, form chat.FormSpec, id string) chat.Field {
	t.Helper()
	for _, f := range form.Fields {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("form has no %q field: %+v", id, form.Fields)
	return chat.Field{}
}

func optionValues(opts []chat.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func TestStartWithEmptyIndexPostsNotice(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, nil, gw, nil)

	sess, err := svc.Start(context.Background(), "U42", "#parts")
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Fatalf("session opened against empty index: %+v", sess)
	}
	if len(gw.opened) != 0 {
		t.Fatal("form opened against empty index")
	}
	if len(gw.notices) != 1 || gw.notices[0].actor != "U42" || gw.notices[0].destination != "#parts" {
		t.Fatalf("notices %+v", gw.notices)
	}
}

func TestStartOrdersCategoriesPriorityFirst(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, func(c *config.Config) {
		c.CategoryPriority = []string{"wheel", "MISSING"}
	})

	sess, err := svc.Start(context.Background(), "U42", "#parts")
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Token == "" {
		t.Fatalf("session %+v", sess)
	}
	if sess.State != StateAwaitingCategory {
		t.Fatalf("state %q", sess.State)
	}
	if svc.ActiveSessions() != 1 {
		t.Fatalf("active=%d", svc.ActiveSessions())
	}

	cat := fieldByID(t, gw.opened[0], "category")
	got := optionValues(cat.Options)
	want := []string{"WHEEL", "BRAKE", "TRIM"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("category order %v", got)
		}
	}

	sub := fieldByID(t, gw.opened[0], "subcategory")
	if sub.Selected != SubcategoryNone {
		t.Fatalf("fresh form subcategory %q", sub.Selected)
	}
}

func TestCategorySelectResetsSubcategoryKeepsSortAndStock(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, err := svc.Start(context.Background(), "U42", "#parts")
	if err != nil {
		t.Fatal(err)
	}
	token := sess.Token

	if err := svc.HandleSortSelected(context.Background(), token, "qty_desc"); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleStockFilterSelected(context.Background(), token, "with_oos"); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleCategorySelected(context.Background(), token, "trim"); err != nil {
		t.Fatal(err)
	}

	form := gw.updated[len(gw.updated)-1]
	if got := fieldByID(t, form, "sort").Selected; got != string(internal.SortQtyDesc) {
		t.Fatalf("sort lost on category change: %q", got)
	}
	if got := fieldByID(t, form, "stock").Selected; got != string(internal.StockWithOOS) {
		t.Fatalf("stock lost on category change: %q", got)
	}
	if got := fieldByID(t, form, "subcategory").Selected; got != SubcategoryNone {
		t.Fatalf("subcategory not reset: %q", got)
	}

	subs := optionValues(fieldByID(t, form, "subcategory").Options)
	want := []string{SubcategoryNone, "FORD", "GMC"}
	if len(subs) != len(want) {
		t.Fatalf("subcategory options %v", subs)
	}
	for i, w := range want {
		if subs[i] != w {
			t.Fatalf("subcategory options %v", subs)
		}
	}
}

func TestSubmitWithoutSelectionsReportsBothFieldErrors(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	res, err := svc.HandleSubmit(context.Background(), sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 0 {
		t.Fatalf("messages posted on invalid submit: %v", res.Messages)
	}
	if _, ok := res.FieldErrors["category"]; !ok {
		t.Fatalf("missing category error: %v", res.FieldErrors)
	}
	if _, ok := res.FieldErrors["subcategory"]; !ok {
		t.Fatalf("missing subcategory error: %v", res.FieldErrors)
	}
	if len(gw.messages) != 0 {
		t.Fatalf("gateway messages %v", gw.messages)
	}
	if svc.ActiveSessions() != 1 {
		t.Fatal("session discarded on validation failure")
	}
}

func TestSubmitWithPlaceholderSubcategoryIsBlocked(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	if err := svc.HandleCategorySelected(context.Background(), sess.Token, "TRIM"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.HandleSubmit(context.Background(), sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.FieldErrors["subcategory"]; !ok {
		t.Fatalf("field errors %v", res.FieldErrors)
	}
	if _, ok := res.FieldErrors["category"]; ok {
		t.Fatalf("category flagged despite being set: %v", res.FieldErrors)
	}
	if len(gw.messages) != 0 {
		t.Fatal("placeholder submit reached the posting path")
	}
}

func TestSubmitPostsChunkedResultsAndRetiresSession(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, func(c *config.Config) {
		c.ResultChunkLines = 2
	})

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	token := sess.Token
	if err := svc.HandleCategorySelected(context.Background(), token, "TRIM"); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleSubcategorySelected(context.Background(), token, "FORD"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.HandleSubmit(context.Background(), token)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FieldErrors) != 0 {
		t.Fatalf("field errors %v", res.FieldErrors)
	}
	// 5 variants at 2 lines per chunk.
	if len(res.Messages) != 3 {
		t.Fatalf("chunks=%d: %v", len(res.Messages), res.Messages)
	}
	if !strings.HasPrefix(res.Messages[0], "TRIM / FORD: 5 variants") {
		t.Fatalf("header missing: %q", res.Messages[0])
	}
	if !strings.Contains(res.Messages[0], "• C-FORD-TRIM-001: qty 5") {
		t.Fatalf("first chunk %q", res.Messages[0])
	}
	if len(gw.messages) != 3 {
		t.Fatalf("gateway got %d messages", len(gw.messages))
	}
	if svc.ActiveSessions() != 0 {
		t.Fatal("session survived a posted submit")
	}
	if err := svc.HandleCategorySelected(context.Background(), token, "TRIM"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("retired session still reachable: %v", err)
	}
}

func TestSubmitEmptyResultPostsNoMatches(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	if err := svc.HandleCategorySelected(context.Background(), sess.Token, "TRIM"); err != nil {
		t.Fatal(err)
	}
	// GMC is a registered subcategory with no variants in either bucket.
	if err := svc.HandleSubcategorySelected(context.Background(), sess.Token, "GMC"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.HandleSubmit(context.Background(), sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 || !strings.Contains(res.Messages[0], "No matches for TRIM / GMC") {
		t.Fatalf("messages %v", res.Messages)
	}
	if svc.ActiveSessions() != 0 {
		t.Fatal("session survived an empty-result submit")
	}
}

func TestCancelDiscardsSessionSilently(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	if !svc.Cancel(sess.Token) {
		t.Fatal("cancel missed the session")
	}
	if svc.Cancel(sess.Token) {
		t.Fatal("double cancel reported a session")
	}
	if svc.ActiveSessions() != 0 {
		t.Fatal("session survived cancel")
	}
	if len(gw.messages) != 0 || len(gw.notices) != 0 {
		t.Fatalf("cancel had side effects: %v %v", gw.messages, gw.notices)
	}
}

func TestPruneStaleDropsIdleSessions(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	if _, err := svc.Start(context.Background(), "U1", "#parts"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "U2", "#parts"); err != nil {
		t.Fatal(err)
	}

	if n := svc.PruneStale(time.Hour); n != 0 {
		t.Fatalf("fresh sessions pruned: %d", n)
	}

	time.Sleep(5 * time.Millisecond)
	if n := svc.PruneStale(time.Millisecond); n != 2 {
		t.Fatalf("pruned=%d", n)
	}
	if svc.ActiveSessions() != 0 {
		t.Fatalf("active=%d", svc.ActiveSessions())
	}
}

func TestHandlersRejectUnknownTokens(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	if err := svc.HandleCategorySelected(context.Background(), "nope", "TRIM"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.HandleSubmit(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestHandleSortSelectedRejectsUnknownMode(t *testing.T) {
	gw := &fakeGateway{}
	svc := testService(t, fixtureIndex(), gw, nil)

	sess, _ := svc.Start(context.Background(), "U42", "#parts")
	if err := svc.HandleSortSelected(context.Background(), sess.Token, "bogus"); err == nil {
		t.Fatal("expected error")
	}
}
