package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaultDeny(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{
			name:  "no rules at all",
			input: Input{Action: "read", Subject: "Listing"},
		},
		{
			name: "rule for another subject",
			input: Input{
				Action:  "read",
				Subject: "Listing",
				Rules:   []Rule{{Action: "read", Subject: "User", Priority: 1}},
			},
		},
		{
			name: "rule for another action",
			input: Input{
				Action:  "delete",
				Subject: "Listing",
				Rules:   []Rule{{Action: "read", Subject: "Listing", Priority: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.False(t, dec.Allowed)
		})
	}
}

func TestResolveMalformed(t *testing.T) {
	_, err := Resolve(Input{Subject: "Listing"})
	require.ErrorIs(t, err, ErrEvaluation)

	_, err = Resolve(Input{Action: "read"})
	require.ErrorIs(t, err, ErrEvaluation)

	dec, err := Resolve(Input{
		Action:  "read",
		Subject: "Listing",
		Rules:   []Rule{{Action: "", Subject: "Listing", Priority: 1}},
	})
	require.ErrorIs(t, err, ErrEvaluation)
	assert.False(t, dec.Allowed)
}

func TestResolveWildcards(t *testing.T) {
	dec, err := Resolve(Input{
		Action:  "delete",
		Subject: "Listing",
		Rules:   []Rule{{Action: Wildcard, Subject: Wildcard, Priority: 1}},
	})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestResolvePriority(t *testing.T) {
	allowLow := Rule{Action: "read", Subject: "Listing", Priority: 1}
	denyHigh := Rule{Action: "read", Subject: "Listing", Inverted: true, Priority: 5}

	// the higher-priority deny wins regardless of rule order
	for name, rules := range map[string][]Rule{
		"deny first": {denyHigh, allowLow},
		"deny last":  {allowLow, denyHigh},
	} {
		t.Run(name, func(t *testing.T) {
			dec, err := Resolve(Input{Action: "read", Subject: "Listing", Rules: rules})
			require.NoError(t, err)
			assert.False(t, dec.Allowed)
			assert.Equal(t, 5, dec.Priority)
		})
	}

	t.Run("higher allow beats lower deny", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:  "read",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "read", Subject: "Listing", Inverted: true, Priority: 1},
				{Action: "read", Subject: "Listing", Priority: 3},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.Equal(t, 3, dec.Priority)
	})

	t.Run("inverted wins a tie", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:  "read",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "read", Subject: "Listing", Priority: 2},
				{Action: "read", Subject: "Listing", Inverted: true, Priority: 2},
				{Action: "read", Subject: "Listing", Priority: 2},
			},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})
}

func TestResolveConditions(t *testing.T) {
	draftOnly := Rule{
		Action:     "update",
		Subject:    "Listing",
		Conditions: Conditions{"status": "draft"},
		Priority:   1,
	}

	t.Run("satisfied", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:   "update",
			Subject:  "Listing",
			Resource: map[string]any{"status": "draft", "city": "Lisbon"},
			Rules:    []Rule{draftOnly},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("violated", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:   "update",
			Subject:  "Listing",
			Resource: map[string]any{"status": "published"},
			Rules:    []Rule{draftOnly},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})

	t.Run("missing field fails the predicate", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:   "update",
			Subject:  "Listing",
			Resource: map[string]any{"city": "Lisbon"},
			Rules:    []Rule{draftOnly},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})

	t.Run("all predicates must hold", func(t *testing.T) {
		rule := Rule{
			Action:     "update",
			Subject:    "Listing",
			Conditions: Conditions{"status": "draft", "city": "Porto"},
			Priority:   1,
		}
		dec, err := Resolve(Input{
			Action:   "update",
			Subject:  "Listing",
			Resource: map[string]any{"status": "draft", "city": "Lisbon"},
			Rules:    []Rule{rule},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})

	t.Run("slice predicate is membership", func(t *testing.T) {
		rule := Rule{
			Action:     "read",
			Subject:    "Listing",
			Conditions: Conditions{"status": []any{"draft", "archived"}},
			Priority:   1,
		}
		dec, err := Resolve(Input{
			Action:   "read",
			Subject:  "Listing",
			Resource: map[string]any{"status": "archived"},
			Rules:    []Rule{rule},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("json numbers match native ints", func(t *testing.T) {
		rule := Rule{
			Action:     "read",
			Subject:    "Listing",
			Conditions: Conditions{"bedrooms": float64(3)},
			Priority:   1,
		}
		dec, err := Resolve(Input{
			Action:   "read",
			Subject:  "Listing",
			Resource: map[string]any{"bedrooms": 3},
			Rules:    []Rule{rule},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})

	t.Run("type-level check defers conditions", func(t *testing.T) {
		dec, err := Resolve(Input{
			Action:  "update",
			Subject: "Listing",
			Rules:   []Rule{draftOnly},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	})
}

func TestResolveScoping(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	roleAgent := uuid.New()
	roleViewer := uuid.New()

	t.Run("tenant-scoped rule needs the matching tenant", func(t *testing.T) {
		rule := Rule{Action: "read", Subject: "Listing", Priority: 1, TenantID: &tenantA}

		dec, err := Resolve(Input{Action: "read", Subject: "Listing", TenantID: &tenantA, Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)

		dec, err = Resolve(Input{Action: "read", Subject: "Listing", TenantID: &tenantB, Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)

		dec, err = Resolve(Input{Action: "read", Subject: "Listing", Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})

	t.Run("role-context rule needs the matching active role", func(t *testing.T) {
		rule := Rule{Action: "read", Subject: "Listing", Priority: 1, RoleContextID: &roleAgent}

		dec, err := Resolve(Input{Action: "read", Subject: "Listing", ActiveRoleID: &roleAgent, Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)

		dec, err = Resolve(Input{Action: "read", Subject: "Listing", ActiveRoleID: &roleViewer, Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)

		dec, err = Resolve(Input{Action: "read", Subject: "Listing", Rules: []Rule{rule}})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	})

	t.Run("override deny outranks role allow", func(t *testing.T) {
		// a priority-5 inverted per-user override beats a priority-1
		// role ability for the same action and subject
		dec, err := Resolve(Input{
			Action:   "update",
			Subject:  "Listing",
			TenantID: &tenantA,
			Rules: []Rule{
				{Action: "update", Subject: "Listing", Priority: 1, Source: SourceRole},
				{Action: "update", Subject: "Listing", Priority: 5, Inverted: true, Source: SourceUser, TenantID: &tenantA},
			},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 5, dec.Priority)
	})
}

func TestResolveFilter(t *testing.T) {
	t.Run("deny yields no filter", func(t *testing.T) {
		dec, filter, err := ResolveFilter(Input{Action: "list", Subject: "Listing"})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Nil(t, filter)
	})

	t.Run("unconditional allow is unrestricted", func(t *testing.T) {
		dec, filter, err := ResolveFilter(Input{
			Action:  "list",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "list", Subject: "Listing", Priority: 1},
				{Action: "list", Subject: "Listing", Priority: 1, Conditions: Conditions{"status": "published"}},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.Nil(t, filter)
	})

	t.Run("conditional allows become alternative groups", func(t *testing.T) {
		dec, filter, err := ResolveFilter(Input{
			Action:  "list",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "list", Subject: "Listing", Priority: 2, Conditions: Conditions{"status": "published"}},
				{Action: "list", Subject: "Listing", Priority: 2, Conditions: Conditions{"city": "Porto", "kind": "sale"}},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		require.Len(t, filter, 2)
		assert.Contains(t, filter, Conditions{"status": "published"})
		assert.Contains(t, filter, Conditions{"city": "Porto", "kind": "sale"})
	})

	t.Run("lower tiers do not leak into the filter", func(t *testing.T) {
		dec, filter, err := ResolveFilter(Input{
			Action:  "list",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "list", Subject: "Listing", Priority: 1, Conditions: Conditions{"city": "Faro"}},
				{Action: "list", Subject: "Listing", Priority: 3, Conditions: Conditions{"status": "published"}},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		require.Len(t, filter, 1)
		assert.Equal(t, Conditions{"status": "published"}, filter[0])
	})

	t.Run("inverted winner denies the collection", func(t *testing.T) {
		dec, filter, err := ResolveFilter(Input{
			Action:  "list",
			Subject: "Listing",
			Rules: []Rule{
				{Action: "list", Subject: "Listing", Priority: 2, Inverted: true},
				{Action: "list", Subject: "Listing", Priority: 1},
			},
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Nil(t, filter)
	})
}
