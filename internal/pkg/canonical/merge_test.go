package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsPopulatedFieldWhenIncomingAbsent(t *testing.T) {
	t.Parallel()

	existing := map[string]any{"email": "va@example.com", "note": "hello"}
	incoming := map[string]any{"email": "", "note": nil}

	merged := Merge(existing, incoming, Policy{})

	assert.Equal(t, "va@example.com", merged["email"])
	assert.Equal(t, "hello", merged["note"])
}

func TestMergeOverwritesWithPresentValue(t *testing.T) {
	t.Parallel()

	existing := map[string]any{"email": "old@example.com"}
	incoming := map[string]any{"email": "new@example.com"}

	merged := Merge(existing, incoming, Policy{})
	assert.Equal(t, "new@example.com", merged["email"])
}

func TestMergeNestedObjects(t *testing.T) {
	t.Parallel()

	existing := map[string]any{
		"processor": map[string]any{"customerId": "cus_1", "currency": "usd"},
	}
	incoming := map[string]any{
		"processor": map[string]any{"customerId": "", "receiptUrl": "https://r.example/1"},
	}

	merged := Merge(existing, incoming, Policy{})
	proc := merged["processor"].(map[string]any)
	assert.Equal(t, "cus_1", proc["customerId"])
	assert.Equal(t, "usd", proc["currency"])
	assert.Equal(t, "https://r.example/1", proc["receiptUrl"])
}

func TestMergeFieldPolicyRules(t *testing.T) {
	t.Parallel()

	policy := Policy{
		Fields: map[string]Rule{
			"createdAt":                KeepExisting,
			"subscription.activatedAt": KeepExisting,
			"note":                     AlwaysOverwrite,
		},
	}

	existing := map[string]any{
		"createdAt": "2024-01-01T00:00:00Z",
		"note":      "stale",
		"subscription": map[string]any{
			"activatedAt": "2024-01-01T00:00:00Z",
		},
	}
	incoming := map[string]any{
		"createdAt": "2025-06-01T00:00:00Z",
		"note":      "",
		"subscription": map[string]any{
			"activatedAt": "2025-06-01T00:00:00Z",
		},
	}

	merged := Merge(existing, incoming, policy)

	// first-seen wins
	assert.Equal(t, "2024-01-01T00:00:00Z", merged["createdAt"])
	sub := merged["subscription"].(map[string]any)
	assert.Equal(t, "2024-01-01T00:00:00Z", sub["activatedAt"])
	// AlwaysOverwrite clears even with an empty incoming value
	assert.Equal(t, "", merged["note"])
}

func TestMergeDocumentsRoundTrip(t *testing.T) {
	t.Parallel()

	type doc struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	existing := doc{Name: "Ada", Email: "ada@example.com"}
	incoming := doc{Name: "Ada L."}

	var out doc
	require.NoError(t, MergeDocuments(existing, incoming, &out, Policy{}))
	assert.Equal(t, "Ada L.", out.Name)
	assert.Equal(t, "ada@example.com", out.Email)
}
