package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionKey(t *testing.T) {
	tests := []struct {
		user   string
		target string
	}{
		{"u1", "c1"},
		{"alice", "bob"},
		{"65a1f0", "65a1f1"},
	}

	for _, tt := range tests {
		t.Run(tt.user+"->"+tt.target, func(t *testing.T) {
			k1 := DecisionKey(tt.user, tt.target)
			k2 := DecisionKey(tt.user, tt.target)

			assert.Equal(t, k1, k2, "key should be deterministic")
			assert.Len(t, k1, 36)
			assert.NotEqual(t, k1, DecisionKey(tt.target, tt.user), "key is directional")
		})
	}
}

func TestParseDecisionKind(t *testing.T) {
	tests := []struct {
		in   string
		want DecisionKind
	}{
		{"reject", Reject},
		{"pass", Reject},
		{"left", Reject},
		{"accept", Accept},
		{"interested", Accept},
		{"right", Accept},
		{"super", SuperAccept},
		{"superAccept", SuperAccept},
		{"up", SuperAccept},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecisionKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDecisionKind("maybe")
	assert.Error(t, err)
}

func TestNewDecision(t *testing.T) {
	d := NewDecision(Accept, "c9")

	assert.True(t, d.Committed)
	assert.Equal(t, "c9", d.CandidateID)
	assert.Equal(t, Accept, d.Kind)
	assert.NotEmpty(t, d.ID)
	assert.NotEqual(t, d.ID, NewDecision(Accept, "c9").ID)
}

func TestDecisionKind_WireValues(t *testing.T) {
	assert.Equal(t, 0, int(Reject))
	assert.Equal(t, 1, int(Accept))
	assert.Equal(t, 2, int(SuperAccept))
	assert.False(t, DecisionKind(3).Valid())
	assert.Equal(t, "DecisionKind(3)", DecisionKind(3).String())
}
