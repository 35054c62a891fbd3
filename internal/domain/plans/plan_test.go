package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByType(t *testing.T) {
	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"FREE", TypeFree, true},
		{"monthly", TypeMonthly, true},
		{" Lifetime ", TypeLifetime, true},
		{"WEEKLY", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		plan, ok := ByType(tt.input)
		assert.Equal(t, tt.found, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, plan.Type, "input %q", tt.input)
	}
}

func TestCatalog(t *testing.T) {
	all := All()
	require.Len(t, all, 3)

	free := Free()
	assert.Equal(t, int64(0), free.Price)
	require.NotNil(t, free.FormLimit)
	require.NotNil(t, free.ResponseLimit)
	assert.Equal(t, 2, *free.FormLimit)
	assert.Equal(t, 50, *free.ResponseLimit)

	monthly, _ := ByType(TypeMonthly)
	assert.Equal(t, int64(2000), monthly.Price)
	assert.Nil(t, monthly.FormLimit)
	assert.Nil(t, monthly.ResponseLimit)

	lifetime, _ := ByType(TypeLifetime)
	assert.Equal(t, int64(25000), lifetime.Price)
	assert.Equal(t, "once", lifetime.Interval)
}

func TestAllReturnsCopy(t *testing.T) {
	All()[0].Type = "MUTATED"
	assert.Equal(t, TypeFree, All()[0].Type)
}
