package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/store"
	"github.com/kbukum/cachesync/store/memory"
)

type product struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func newChannelAdapter(t *testing.T, channelID string) store.Adapter {
	t.Helper()
	a := memory.New(nil)
	if err := a.Open(context.Background(), store.ChannelScope(channelID)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return a
}

func addProducts(t *testing.T, a store.Adapter, names ...string) {
	t.Helper()
	entities := make([]Entity[product], len(names))
	for i, n := range names {
		entities[i] = Entity[product]{ID: fmt.Sprintf("p%d", i), Searchable: n, Payload: product{Name: n, Price: i}}
	}
	if err := BulkAdd(context.Background(), a, store.Products, entities); err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}
}

func names(ps []product) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return strings.Join(out, "|")
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Café Latte":   "cafe latte",
		"ÀÉÎÕÜ":        "aeiou",
		"Crème brûlée": "creme brulee",
		"plain":        "plain",
		"":             "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("  Blue   Widget blue ")
	if tokens.Cardinality() != 2 {
		t.Errorf("expected 2 tokens, got %v", tokens.ToSlice())
	}
	if !tokens.Contains("blue", "widget") {
		t.Errorf("unexpected tokens %v", tokens.ToSlice())
	}
	if Tokenize("   ").Cardinality() != 0 {
		t.Error("expected no tokens for blank input")
	}
}

func TestSearch_Ranking(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Blue Widget", "Widget Blue", "Red Gadget")

	got, err := Search[product](ctx, a, store.Products, "widget", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if names(got) != "Widget Blue|Blue Widget" {
		t.Errorf("expected prefix match before substring match, got %s", names(got))
	}
}

func TestSearch_Tiers(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Widget Blue Large", "Large Blue Widget", "Blue Large", "Widget Large Blue", "Red Gadget")

	got, err := Search[product](ctx, a, store.Products, "widget blue", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// One prefix match, then the all-words matches in raw text order.
	want := "Widget Blue Large|Large Blue Widget|Widget Large Blue"
	if names(got) != want {
		t.Errorf("expected %s, got %s", want, names(got))
	}
}

func TestSearch_SubstringBeforeAllWords(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Big Widget Blue", "Blue thing Widget")

	got, _ := Search[product](ctx, a, store.Products, "Widget  BLUE", 0)
	if names(got) != "Big Widget Blue|Blue thing Widget" {
		t.Errorf("unexpected order %s", names(got))
	}
}

func TestSearch_CollapsesTermWhitespace(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Blue Widget", "Widget for Blue", "Blue Gadget")

	want, err := Search[product](ctx, a, store.Products, "blue widget", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if names(want) != "Blue Widget|Widget for Blue" {
		t.Fatalf("unexpected baseline %s", names(want))
	}
	for _, term := range []string{"blue  widget", "  blue \t widget  ", "Blue\nWidget"} {
		got, _ := Search[product](ctx, a, store.Products, term, 0)
		if names(got) != names(want) {
			t.Errorf("Search(%q): expected %s, got %s", term, names(want), names(got))
		}
	}
}

func TestSearch_AccentFolding(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Café Latte", "Tea")

	got, err := Search[product](ctx, a, store.Products, "cafe", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if names(got) != "Café Latte" {
		t.Errorf("expected accent-folded match, got %s", names(got))
	}

	got, _ = Search[product](ctx, a, store.Products, "CAFÉ", 0)
	if len(got) != 1 {
		t.Errorf("expected accented query to match, got %s", names(got))
	}
}

func TestSearch_BlankTerm(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "Blue Widget")

	for _, term := range []string{"", "   ", "\t\n"} {
		got, err := Search[product](ctx, a, store.Products, term, 0)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", term, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Search(%q) = %v, want empty slice", term, got)
		}
	}
}

func TestSearch_Limit(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	var ns []string
	for i := 0; i < 60; i++ {
		ns = append(ns, fmt.Sprintf("Item %02d", i))
	}
	addProducts(t, a, ns...)

	got, _ := Search[product](ctx, a, store.Products, "item", 0)
	if len(got) != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, len(got))
	}
	got, _ = Search[product](ctx, a, store.Products, "item", 5)
	if len(got) != 5 || got[0].Name != "Item 00" {
		t.Errorf("unexpected limited result %s", names(got))
	}
}

func TestSearch_ScanCeiling(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")

	entities := make([]Entity[product], 0, DefaultScanCeiling+1)
	for i := 0; i < DefaultScanCeiling; i++ {
		entities = append(entities, Entity[product]{ID: fmt.Sprintf("a%04d", i), Searchable: "filler", Payload: product{Name: "filler"}})
	}
	// Sorts after every filler id, so it is beyond the ceiling.
	entities = append(entities, Entity[product]{ID: "z", Searchable: "needle", Payload: product{Name: "needle"}})
	if err := BulkAdd(ctx, a, store.Products, entities); err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}

	got, _ := Search[product](ctx, a, store.Products, "needle", 0)
	if len(got) != 0 {
		t.Errorf("expected rows beyond the scan ceiling to be ignored, got %s", names(got))
	}
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Search[product](ctx, memory.New(nil), store.Products, "x", 0); !errors.IsNotOpen(err) {
		t.Errorf("expected NOT_OPEN, got %v", err)
	}

	a := newChannelAdapter(t, "1")
	a.BulkPut(ctx, store.Products, []store.Row{{ID: "bad", Searchable: "broken", Payload: []byte("not json")}})
	if _, err := Search[product](ctx, a, store.Products, "broken", 0); !errors.HasCode(err, errors.ErrCodeStorage) {
		t.Errorf("expected STORAGE_ERROR for undecodable payload, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "A", "B", "C")

	got, err := List[product](ctx, a, store.Products, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if names(got) != "A|B" {
		t.Errorf("expected A|B, got %s", names(got))
	}
	all, _ := List[product](ctx, a, store.Products, 0)
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "A", "B", "C", "D", "E")

	odd := func(p product) bool { return p.Price%2 == 1 }
	got, err := Filter(ctx, a, store.Products, odd, 0)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if names(got) != "B|D" {
		t.Errorf("expected B|D, got %s", names(got))
	}

	got, _ = Filter(ctx, a, store.Products, func(product) bool { return true }, 2)
	if len(got) != 2 {
		t.Errorf("expected limit 2, got %d", len(got))
	}
}

func TestExpireItem(t *testing.T) {
	ctx := context.Background()
	a := newChannelAdapter(t, "1")
	addProducts(t, a, "A", "B")

	if err := ExpireItem(ctx, a, store.Products, "p0"); err != nil {
		t.Fatalf("ExpireItem failed: %v", err)
	}
	got, _ := List[product](ctx, a, store.Products, 0)
	if names(got) != "B" {
		t.Errorf("expected B, got %s", names(got))
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := memory.New(nil)

	if err := SetKV(ctx, a, store.Global, "x", 42); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	v, ok, err := GetKV[int](ctx, a, store.Global, "x")
	if err != nil || !ok || v != 42 {
		t.Fatalf("GetKV = (%d, %v, %v), want (42, true, nil)", v, ok, err)
	}

	if err := ClearScope(ctx, a, store.Global); err != nil {
		t.Fatalf("ClearScope failed: %v", err)
	}
	if _, ok, _ := GetKV[int](ctx, a, store.Global, "x"); ok {
		t.Error("expected key to be gone after ClearScope")
	}

	SetKV(ctx, a, store.Session, "y", "v")
	if err := RemoveKV(ctx, a, store.Session, "y"); err != nil {
		t.Fatalf("RemoveKV failed: %v", err)
	}
	if _, ok, _ := GetKV[string](ctx, a, store.Session, "y"); ok {
		t.Error("expected key to be removed")
	}
}

func TestKV_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	a := memory.New(nil)
	SetKV(ctx, a, store.Global, "x", "text")
	if _, _, err := GetKV[int](ctx, a, store.Global, "x"); err == nil {
		t.Error("expected decode error")
	}
	if err := SetKV(ctx, a, store.Global, "bad", make(chan int)); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for unencodable value, got %v", err)
	}
}
