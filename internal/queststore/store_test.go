package queststore

import (
	"context"
	"testing"

	"flowquest/internal/testsupport"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	quest := &Quest{
		ID:         "q_ab12cd34",
		Template:   "sales_quote_v1",
		Status:     StatusActive,
		InputsJSON: `{"company":"Acme Corp"}`,
		GraphJSON:  `{"version":"v1"}`,
	}
	if err := store.Save(ctx, quest); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "q_ab12cd34")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("quest not found after save")
	}
	if got.Template != "sales_quote_v1" || got.Status != StatusActive {
		t.Errorf("round trip = %+v", got)
	}
	if got.InputsJSON != `{"company":"Acme Corp"}` {
		t.Errorf("inputs = %q", got.InputsJSON)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not persisted")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	got, err := store.Get(context.Background(), "q_missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestSaveUpsertsExistingQuest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	quest := &Quest{ID: "q_1", Template: "sales_quote_v1", Status: StatusDraft, GraphJSON: "{}"}
	if err := store.Save(ctx, quest); err != nil {
		t.Fatalf("Save: %v", err)
	}
	quest.Status = StatusVerified
	quest.ReceiptJSON = `{"quest_id":"q_1"}`
	if err := store.Save(ctx, quest); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := store.Get(ctx, "q_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusVerified || got.ReceiptJSON == "" {
		t.Errorf("update not applied: %+v", got)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("list = %d rows, want 1 after upsert", len(all))
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, quest := range []*Quest{
		{ID: "q_a", Template: "sales_quote_v1", Status: StatusActive, GraphJSON: "{}"},
		{ID: "q_b", Template: "sales_quote_v1", Status: StatusExported, GraphJSON: "{}"},
		{ID: "q_c", Template: "sales_quote_v1", Status: StatusActive, GraphJSON: "{}"},
	} {
		if err := store.Save(ctx, quest); err != nil {
			t.Fatalf("Save %s: %v", quest.ID, err)
		}
	}

	active, err := store.List(ctx, StatusActive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active quests = %d, want 2", len(active))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[StatusActive] != 2 || stats[StatusExported] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestRemove(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Quest{ID: "q_gone", Template: "sales_quote_v1", Status: StatusDraft, GraphJSON: "{}"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	removed, err := store.Remove(ctx, "q_gone")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v; want true", removed, err)
	}
	removed, err = store.Remove(ctx, "q_gone")
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v; want false", removed, err)
	}
}
