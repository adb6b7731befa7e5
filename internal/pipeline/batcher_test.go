package pipeline

import (
	"testing"

	"callscore_backend/internal/platforms"
)

func call(id, sellerEmail string) platforms.CallSummary {
	return platforms.CallSummary{
		ID:      id,
		Sellers: []platforms.Party{{Name: "Seller", Email: sellerEmail}},
	}
}

func TestFairBatchCapsPerSeller(t *testing.T) {
	candidates := []platforms.CallSummary{
		call("a1", "alice@acme.test"),
		call("a2", "alice@acme.test"),
		call("a3", "alice@acme.test"),
		call("b1", "bob@acme.test"),
	}

	batch := FairBatch(candidates, 1)

	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].ID != "a1" || batch[1].ID != "b1" {
		t.Fatalf("batch = [%s, %s], want [a1, b1]", batch[0].ID, batch[1].ID)
	}
}

func TestFairBatchPreservesOrder(t *testing.T) {
	candidates := []platforms.CallSummary{
		call("b1", "bob@acme.test"),
		call("a1", "alice@acme.test"),
		call("b2", "bob@acme.test"),
		call("a2", "alice@acme.test"),
	}

	batch := FairBatch(candidates, 2)

	want := []string{"b1", "a1", "b2", "a2"}
	if len(batch) != len(want) {
		t.Fatalf("batch size = %d, want %d", len(batch), len(want))
	}
	for i, id := range want {
		if batch[i].ID != id {
			t.Fatalf("batch[%d] = %s, want %s", i, batch[i].ID, id)
		}
	}
}

func TestFairBatchUnattributedShareOneBucket(t *testing.T) {
	candidates := []platforms.CallSummary{
		{ID: "x1"},
		{ID: "x2"},
		call("a1", "alice@acme.test"),
	}

	batch := FairBatch(candidates, 1)

	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].ID != "x1" || batch[1].ID != "a1" {
		t.Fatalf("batch = [%s, %s], want [x1, a1]", batch[0].ID, batch[1].ID)
	}
}

func TestFairBatchFallsBackToSellerName(t *testing.T) {
	candidates := []platforms.CallSummary{
		{ID: "n1", Sellers: []platforms.Party{{Name: "No Email"}}},
		{ID: "n2", Sellers: []platforms.Party{{Name: "No Email"}}},
	}

	batch := FairBatch(candidates, 1)
	if len(batch) != 1 || batch[0].ID != "n1" {
		t.Fatalf("expected only n1 selected, got %d entries", len(batch))
	}
}

func TestFairBatchZeroQuota(t *testing.T) {
	if batch := FairBatch([]platforms.CallSummary{call("a1", "a@a")}, 0); batch != nil {
		t.Fatalf("zero quota should select nothing, got %d", len(batch))
	}
}
