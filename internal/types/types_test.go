package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServices_CatalogOrderAndPrices(t *testing.T) {
	services := Services()
	require.Len(t, services, 4)
	assert.Equal(t, ServiceConsult, services[0].ID)
	assert.Equal(t, ServiceMentorship, services[3].ID)

	for _, svc := range services {
		assert.Greater(t, svc.PriceCents, int64(0), "price for %s", svc.ID)
		assert.NotEmpty(t, svc.Name)
	}

	svc, ok := LookupService(ServiceAccelerator)
	require.True(t, ok)
	assert.Equal(t, "$1,497", svc.DisplayPrice())

	assert.False(t, ServiceID("unknown").Valid())
}

func TestCreditPacks(t *testing.T) {
	packs := CreditPacks()
	require.Len(t, packs, 3)
	for i, p := range packs {
		assert.Greater(t, p.Credits, 0, "credits for %s", p.ID)
		assert.Greater(t, p.PriceCents, int64(0), "price for %s", p.ID)
		if i > 0 {
			assert.Greater(t, p.Credits, packs[i-1].Credits)
		}
	}

	five, ok := LookupCreditPack(CreditPackFive)
	require.True(t, ok)
	assert.Equal(t, 5, five.Credits)
	assert.Equal(t, "$39", five.DisplayPrice())

	_, ok = LookupCreditPack("credits-1000")
	assert.False(t, ok)

	// Callers cannot change the catalog through the returned slice
	packs[0].Credits = 99
	single, _ := LookupCreditPack(CreditPackSingle)
	assert.Equal(t, 1, single.Credits)
}

func TestService_DisplayPriceWithCents(t *testing.T) {
	svc := Service{PriceCents: 123456}
	assert.Equal(t, "$1,234.56", svc.DisplayPrice())
}

func TestContactPatch_Apply(t *testing.T) {
	name := "Ada"
	base := ContactInfo{Name: "old", Email: "a@b.com", Phone: "555"}

	got := ContactPatch{Name: &name}.Apply(base)

	assert.Equal(t, ContactInfo{Name: "Ada", Email: "a@b.com", Phone: "555"}, got)
	assert.Equal(t, "old", base.Name, "original must not change")
}

func TestParsedJDPatch_ApplyDoesNotShareArrays(t *testing.T) {
	original := ParsedJD{HardSkills: []string{"Go", "Python"}}
	patched := ParsedJDPatch{HardSkills: []string{"Go"}}.Apply(original)

	patched.HardSkills[0] = "Rust"

	assert.Equal(t, []string{"Go", "Python"}, original.HardSkills)
	assert.Equal(t, []string{"Rust"}, patched.HardSkills)
}

func TestRevisedBullet_UnmarshalStringOrList(t *testing.T) {
	var c Candidate
	payload := `{
		"original_bullets": ["a", "b"],
		"revised_bullets": ["A1", ["B1", "B2"]],
		"scores": [0.8, {"score": 0.6}, "bogus"]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	require.Len(t, c.RevisedBullets, 2)
	assert.Equal(t, RevisedBullet{"A1"}, c.RevisedBullets[0])
	assert.Equal(t, RevisedBullet{"B1", "B2"}, c.RevisedBullets[1])

	require.Len(t, c.Scores, 3)
	assert.Equal(t, Score{Value: 0.8, Valid: true}, c.Scores[0])
	assert.Equal(t, Score{Value: 0.6, Valid: true}, c.Scores[1])
	assert.False(t, c.Scores[2].Valid)
}

func TestRevisedBullet_RejectsObjects(t *testing.T) {
	var r RevisedBullet
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &r))
}

func TestStatusResponse_Outcome(t *testing.T) {
	tests := []struct {
		name    string
		resp    StatusResponse
		want    JobOutcome
		wantErr bool
	}{
		{"processing", StatusResponse{Status: JobStatusProcessing, ProcessedCandidates: 1, TotalCandidates: 3}, JobProcessing{Processed: 1, Total: 3}, false},
		{"completed", StatusResponse{Status: JobStatusCompleted}, JobCompleted{}, false},
		{"failed", StatusResponse{Status: JobStatusFailed, Error: "boom"}, JobFailed{Reason: "boom"}, false},
		{"unknown", StatusResponse{Status: "weird"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resp.Outcome()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
