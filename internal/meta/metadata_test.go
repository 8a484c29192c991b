package meta

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfAndSet(t *testing.T) {
	m := Of(KeyLoanID, "l-1", KeyPaymentID, "p-1", "dangling")
	assert.Len(t, m, 2)
	v, ok := m.Get(KeyLoanID)
	require.True(t, ok)
	assert.Equal(t, "l-1", v)

	m.Set("", "ignored")
	m.Set(strings.Repeat("k", MaxKeyLen+1), "ignored")
	m.Set("k", strings.Repeat("v", MaxValLen+1))
	assert.Len(t, m, 2)

	cloned := m.Clone()
	cloned.Set("extra", "1")
	assert.Len(t, m, 2)
	assert.Len(t, cloned, 3)
}

func TestSetRespectsPairLimitButAllowsOverwrite(t *testing.T) {
	m := New(nil)
	for i := 0; i < MaxPairs; i++ {
		m.Set(string(rune('a'+i)), "v")
	}
	m.Set("overflow", "v")
	assert.Len(t, m, MaxPairs)
	m.Set("a", "changed")
	assert.Equal(t, "changed", m["a"])
}

func TestValidationLimits(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < MaxPairs+1; i++ {
		pairs[strings.Repeat(string(rune('a'+i%26)), 1+i/26)] = "v"
	}
	assert.Error(t, New(pairs).Validate())
	assert.Error(t, Metadata{strings.Repeat("k", MaxKeyLen+1): "v"}.Validate())
	assert.Error(t, Metadata{"k": strings.Repeat("v", MaxValLen+1)}.Validate())
	assert.NoError(t, Of(KeyPeriodID, "2025-01").Validate())
}

func TestStableJSONAndRoundtrip(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1"})
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2"}`, string(b))

	var back Metadata
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m, back)

	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.Empty(t, back)
}
