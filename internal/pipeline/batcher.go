package pipeline

import "callscore_backend/internal/platforms"

// FairBatch selects at most perSellerQuota calls per seller from the
// candidates, preserving input order. This keeps one prolific rep from
// consuming the whole run; the orchestrator further caps the flattened
// result at the total-per-run quota.
func FairBatch(candidates []platforms.CallSummary, perSellerQuota int) []platforms.CallSummary {
	if perSellerQuota <= 0 {
		return nil
	}

	perSeller := make(map[string]int)
	batch := make([]platforms.CallSummary, 0, len(candidates))
	for _, candidate := range candidates {
		seller := sellerKey(candidate)
		if perSeller[seller] >= perSellerQuota {
			continue
		}
		perSeller[seller]++
		batch = append(batch, candidate)
	}
	return batch
}

// sellerKey identifies the seller a call is attributed to for fairness
// purposes. Email is preferred over display name; calls with no seller at
// all share one bucket so they cannot crowd out attributed calls.
func sellerKey(summary platforms.CallSummary) string {
	for _, seller := range summary.Sellers {
		if seller.Email != "" {
			return seller.Email
		}
		if seller.Name != "" {
			return seller.Name
		}
	}
	return "unattributed"
}
