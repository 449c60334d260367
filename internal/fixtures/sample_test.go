package fixtures

import "testing"

func TestSampleCase(t *testing.T) {
	run, accounts, rings, edges := SampleCase()

	if run == nil || len(accounts) == 0 || len(rings) == 0 || len(edges) == 0 {
		t.Fatal("sample case must be fully populated")
	}
	if run.SuspiciousCount != len(accounts) {
		t.Errorf("suspicious count %d does not match %d accounts", run.SuspiciousCount, len(accounts))
	}
	if run.RingCount != len(rings) {
		t.Errorf("ring count %d does not match %d rings", run.RingCount, len(rings))
	}

	// Every ring id referenced by an account exists.
	known := make(map[string]bool)
	for _, r := range rings {
		known[r.ID] = true
	}
	for _, acc := range accounts {
		if acc.RingID != nil && !known[*acc.RingID] {
			t.Errorf("account %s references unknown ring %s", acc.ID, *acc.RingID)
		}
	}

	// Callers own the returned data; mutations must not leak across calls.
	accounts[0].RiskScore = 1
	_, fresh, _, _ := SampleCase()
	if fresh[0].RiskScore == 1 {
		t.Error("sample accounts shared between calls")
	}
}
