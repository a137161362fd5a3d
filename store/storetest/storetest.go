// Package storetest is a conformance suite for store.Adapter backends.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/store"
)

// NewAdapter returns a fresh, empty adapter for one sub-test.
type NewAdapter func(t *testing.T) store.Adapter

// Run executes every conformance check against adapters built by newAdapter.
func Run(t *testing.T, newAdapter NewAdapter) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, a store.Adapter)
	}{
		{"NotOpen", testNotOpen},
		{"UnknownStore", testUnknownStore},
		{"InvalidScope", testInvalidScope},
		{"RoundTrip", testRoundTrip},
		{"Ordering", testOrdering},
		{"ScopeIsolation", testScopeIsolation},
		{"GlobalKV", testGlobalKV},
		{"ChannelKV", testChannelKV},
		{"DeleteScope", testDeleteScope},
		{"CloseAndReopen", testCloseAndReopen},
		{"PayloadCopy", testPayloadCopy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdapter(t)
			t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
			tc.fn(t, a)
		})
	}
}

func mustOpen(t *testing.T, a store.Adapter, s store.Scope) {
	t.Helper()
	if err := a.Open(context.Background(), s); err != nil {
		t.Fatalf("Open(%s) failed: %v", s, err)
	}
}

func mustPut(t *testing.T, a store.Adapter, name string, rows ...store.Row) {
	t.Helper()
	if err := a.BulkPut(context.Background(), name, rows); err != nil {
		t.Fatalf("BulkPut(%s) failed: %v", name, err)
	}
}

func ids(rows []store.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func testNotOpen(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	row := store.Row{ID: "1", Searchable: "x", Payload: []byte(`{}`)}

	checks := map[string]error{
		"BulkPut":     a.BulkPut(ctx, store.Products, []store.Row{row}),
		"Delete":      a.Delete(ctx, store.Products, "1"),
		"DeleteScope": a.DeleteScope(ctx),
		"SetKV":       a.SetKV(ctx, store.ChannelScope("1"), "k", []byte("v")),
	}
	_, _, err := a.Get(ctx, store.Products, "1")
	checks["Get"] = err
	_, err = a.GetAll(ctx, store.Products, 0)
	checks["GetAll"] = err
	_, _, err = a.GetKV(ctx, store.ChannelScope("1"), "k")
	checks["GetKV"] = err

	for op, err := range checks {
		if !errors.IsNotOpen(err) {
			t.Errorf("%s: expected NOT_OPEN, got %v", op, err)
		}
	}

	// A different channel than the one addressed is still NOT_OPEN.
	mustOpen(t, a, store.ChannelScope("1"))
	if err := a.SetKV(ctx, store.ChannelScope("2"), "k", []byte("v")); !errors.IsNotOpen(err) {
		t.Errorf("SetKV on closed channel: expected NOT_OPEN, got %v", err)
	}
}

func testUnknownStore(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	mustOpen(t, a, store.ChannelScope("1"))

	for _, name := range []string{store.KV, "orders"} {
		if err := a.BulkPut(ctx, name, []store.Row{{ID: "1"}}); !errors.IsUnknownStore(err) {
			t.Errorf("BulkPut(%s): expected UNKNOWN_STORE, got %v", name, err)
		}
		if _, err := a.GetAll(ctx, name, 0); !errors.IsUnknownStore(err) {
			t.Errorf("GetAll(%s): expected UNKNOWN_STORE, got %v", name, err)
		}
		if _, _, err := a.Get(ctx, name, "1"); !errors.IsUnknownStore(err) {
			t.Errorf("Get(%s): expected UNKNOWN_STORE, got %v", name, err)
		}
	}
}

func testInvalidScope(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	if err := a.Open(ctx, store.Scope("bogus")); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Open(bogus): expected INVALID_INPUT, got %v", err)
	}
	if err := a.SetKV(ctx, store.Scope("bogus"), "k", nil); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetKV(bogus): expected INVALID_INPUT, got %v", err)
	}

	// Opening global or session leaves the channel scope untouched.
	mustOpen(t, a, store.ChannelScope("1"))
	mustOpen(t, a, store.Global)
	mustOpen(t, a, store.Session)
	if got := a.CurrentScope(); got != store.ChannelScope("1") {
		t.Errorf("expected channel:1 to stay open, got %q", got)
	}
}

func testRoundTrip(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	mustOpen(t, a, store.ChannelScope("1"))

	mustPut(t, a, store.Products,
		store.Row{ID: "p1", Searchable: "Blue Widget", Payload: []byte(`{"name":"Blue Widget"}`)},
		store.Row{ID: "p2", Searchable: "Red Gadget", Payload: []byte(`{"name":"Red Gadget"}`)},
	)

	got, ok, err := a.Get(ctx, store.Products, "p1")
	if err != nil || !ok {
		t.Fatalf("Get(p1) = (%v, %v)", ok, err)
	}
	if got.Searchable != "Blue Widget" || string(got.Payload) != `{"name":"Blue Widget"}` {
		t.Errorf("unexpected row %+v", got)
	}

	// Upsert replaces by id.
	mustPut(t, a, store.Products, store.Row{ID: "p1", Searchable: "Green Widget", Payload: []byte(`{}`)})
	got, _, _ = a.Get(ctx, store.Products, "p1")
	if got.Searchable != "Green Widget" {
		t.Errorf("expected upserted row, got %+v", got)
	}

	if err := a.Delete(ctx, store.Products, "p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := a.Get(ctx, store.Products, "p1"); ok {
		t.Error("expected p1 to be deleted")
	}
	if err := a.Delete(ctx, store.Products, "missing"); err != nil {
		t.Errorf("Delete of missing id: %v", err)
	}

	// Stores within a scope are independent.
	if _, ok, _ := a.Get(ctx, store.Customers, "p2"); ok {
		t.Error("row leaked across stores")
	}

	if err := a.BulkPut(ctx, store.Products, nil); err != nil {
		t.Errorf("BulkPut with no rows: %v", err)
	}
}

func testOrdering(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	mustOpen(t, a, store.ChannelScope("1"))

	var rows []store.Row
	for _, id := range []string{"c", "a", "e", "b", "d"} {
		rows = append(rows, store.Row{ID: id, Searchable: id, Payload: []byte(`{}`)})
	}
	mustPut(t, a, store.Suppliers, rows...)

	all, err := a.GetAll(ctx, store.Suppliers, 0)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if got := fmt.Sprint(ids(all)); got != "[a b c d e]" {
		t.Errorf("expected ascending ids, got %s", got)
	}

	limited, _ := a.GetAll(ctx, store.Suppliers, 2)
	if got := fmt.Sprint(ids(limited)); got != "[a b]" {
		t.Errorf("expected [a b], got %s", got)
	}

	empty, err := a.GetAll(ctx, store.Customers, 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty store, got (%v, %v)", empty, err)
	}
}

func testScopeIsolation(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	mustOpen(t, a, store.ChannelScope("1"))
	mustPut(t, a, store.Products, store.Row{ID: "p1", Searchable: "one", Payload: []byte(`1`)})

	mustOpen(t, a, store.ChannelScope("2"))
	if got := a.CurrentScope(); got != store.ChannelScope("2") {
		t.Errorf("expected channel:2 open, got %q", got)
	}
	if _, ok, _ := a.Get(ctx, store.Products, "p1"); ok {
		t.Error("channel:1 row visible from channel:2")
	}
	all, _ := a.GetAll(ctx, store.Products, 0)
	if len(all) != 0 {
		t.Errorf("expected empty products in channel:2, got %v", ids(all))
	}

	mustOpen(t, a, store.ChannelScope("1"))
	if _, ok, _ := a.Get(ctx, store.Products, "p1"); !ok {
		t.Error("channel:1 row lost after switching back")
	}

	// Re-opening the current channel is a no-op.
	mustOpen(t, a, store.ChannelScope("1"))
	if _, ok, _ := a.Get(ctx, store.Products, "p1"); !ok {
		t.Error("re-open of current channel dropped data")
	}
}

func testGlobalKV(t *testing.T, a store.Adapter) {
	ctx := context.Background()

	if err := a.SetKV(ctx, store.Global, "x", []byte("42")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	if err := a.SetKV(ctx, store.Session, "x", []byte("s")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}

	v, ok, err := a.GetKV(ctx, store.Global, "x")
	if err != nil || !ok || string(v) != "42" {
		t.Fatalf("GetKV(global,x) = (%q, %v, %v)", v, ok, err)
	}

	if err := a.ClearScope(ctx, store.Global); err != nil {
		t.Fatalf("ClearScope failed: %v", err)
	}
	if _, ok, _ := a.GetKV(ctx, store.Global, "x"); ok {
		t.Error("global key survived ClearScope(global)")
	}
	if v, ok, _ := a.GetKV(ctx, store.Session, "x"); !ok || string(v) != "s" {
		t.Error("session key removed by ClearScope(global)")
	}

	if err := a.RemoveKV(ctx, store.Session, "x"); err != nil {
		t.Fatalf("RemoveKV failed: %v", err)
	}
	if _, ok, _ := a.GetKV(ctx, store.Session, "x"); ok {
		t.Error("session key survived RemoveKV")
	}
	if err := a.RemoveKV(ctx, store.Session, "missing"); err != nil {
		t.Errorf("RemoveKV of missing key: %v", err)
	}
}

func testChannelKV(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	ch1, ch2 := store.ChannelScope("1"), store.ChannelScope("2")

	mustOpen(t, a, ch1)
	if err := a.SetKV(ctx, ch1, "cursor", []byte("a")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	if err := a.SetKV(ctx, store.Global, "cursor", []byte("g")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}

	mustOpen(t, a, ch2)
	if _, _, err := a.GetKV(ctx, ch1, "cursor"); !errors.IsNotOpen(err) {
		t.Errorf("expected NOT_OPEN for closed channel kv, got %v", err)
	}
	if _, ok, _ := a.GetKV(ctx, ch2, "cursor"); ok {
		t.Error("channel kv leaked across channels")
	}

	mustOpen(t, a, ch1)
	if v, ok, _ := a.GetKV(ctx, ch1, "cursor"); !ok || string(v) != "a" {
		t.Errorf("channel kv lost, got (%q, %v)", v, ok)
	}
	if err := a.ClearScope(ctx, ch1); err != nil {
		t.Fatalf("ClearScope(channel) failed: %v", err)
	}
	if _, ok, _ := a.GetKV(ctx, ch1, "cursor"); ok {
		t.Error("channel kv survived ClearScope")
	}
	if v, ok, _ := a.GetKV(ctx, store.Global, "cursor"); !ok || string(v) != "g" {
		t.Error("global kv removed by channel ClearScope")
	}
}

func testDeleteScope(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	ch := store.ChannelScope("1")

	mustOpen(t, a, ch)
	mustPut(t, a, store.Products, store.Row{ID: "p1", Searchable: "one", Payload: []byte(`1`)})
	if err := a.SetKV(ctx, ch, "k", []byte("v")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	if err := a.SetKV(ctx, store.Global, "k", []byte("g")); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}

	if err := a.DeleteScope(ctx); err != nil {
		t.Fatalf("DeleteScope failed: %v", err)
	}
	if got := a.CurrentScope(); got != "" {
		t.Errorf("expected no open scope, got %q", got)
	}
	if err := a.DeleteScope(ctx); !errors.IsNotOpen(err) {
		t.Errorf("second DeleteScope: expected NOT_OPEN, got %v", err)
	}

	mustOpen(t, a, ch)
	if _, ok, _ := a.Get(ctx, store.Products, "p1"); ok {
		t.Error("row survived DeleteScope")
	}
	if _, ok, _ := a.GetKV(ctx, ch, "k"); ok {
		t.Error("channel kv survived DeleteScope")
	}
	if _, ok, _ := a.GetKV(ctx, store.Global, "k"); !ok {
		t.Error("global kv removed by DeleteScope")
	}
}

func testCloseAndReopen(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	if err := a.Close(ctx); err != nil {
		t.Errorf("Close with nothing open: %v", err)
	}

	mustOpen(t, a, store.ChannelScope("1"))
	mustPut(t, a, store.Customers, store.Row{ID: "c1", Searchable: "Ana", Payload: []byte(`{}`)})
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := a.CurrentScope(); got != "" {
		t.Errorf("expected no open scope after Close, got %q", got)
	}
	if _, _, err := a.Get(ctx, store.Customers, "c1"); !errors.IsNotOpen(err) {
		t.Errorf("expected NOT_OPEN after Close, got %v", err)
	}

	mustOpen(t, a, store.ChannelScope("1"))
	if _, ok, _ := a.Get(ctx, store.Customers, "c1"); !ok {
		t.Error("data lost across Close")
	}
}

func testPayloadCopy(t *testing.T, a store.Adapter) {
	ctx := context.Background()
	mustOpen(t, a, store.ChannelScope("1"))

	payload := []byte(`{"v":1}`)
	mustPut(t, a, store.Products, store.Row{ID: "p", Searchable: "p", Payload: payload})
	payload[5] = '9'

	got, _, _ := a.Get(ctx, store.Products, "p")
	if string(got.Payload) != `{"v":1}` {
		t.Errorf("stored payload aliased caller memory: %s", got.Payload)
	}

	value := []byte("abc")
	if err := a.SetKV(ctx, store.Global, "k", value); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	value[0] = 'z'
	v, _, _ := a.GetKV(ctx, store.Global, "k")
	if string(v) != "abc" {
		t.Errorf("stored kv aliased caller memory: %s", v)
	}
}
