package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillRule(t *testing.T) {
	tests := []struct {
		name     string
		rule     string
		overrun  time.Duration
		overtime time.Duration
		model    string
		deadline bool
		want     bool
	}{
		{"small overrun", "overrun_minutes <= 30", 20 * time.Minute, 0, "A", false, true},
		{"large overrun", "overrun_minutes <= 30", 45 * time.Minute, 0, "A", false, false},
		{"no overtime yesterday", "overrun_minutes <= 60 && overtime_minutes == 0", 30 * time.Minute, 10 * time.Minute, "A", false, false},
		{"urgent orders only", "has_deadline", 2 * time.Hour, 0, "B", true, true},
		{"by model", `model in ["A", "C"]`, time.Hour, 0, "B", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewBackfillRule(tt.rule)
			require.NoError(t, err)
			got, err := r.Accept(tt.overrun, tt.overtime, 3, tt.model, tt.deadline)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, r.String())
		})
	}
}

func TestBackfillRule_Empty(t *testing.T) {
	r, err := NewBackfillRule("")
	require.NoError(t, err)
	assert.Nil(t, r)

	ok, err := r.Accept(time.Minute, 0, 1, "A", false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", r.String())
}

func TestBackfillRule_CompileErrors(t *testing.T) {
	_, err := NewBackfillRule("overrun_minutes +")
	assert.Error(t, err)

	// 结果必须是布尔值
	_, err = NewBackfillRule("overrun_minutes + 1")
	assert.Error(t, err)

	_, err = NewBackfillRule("unknown_variable > 1")
	assert.Error(t, err)
}
