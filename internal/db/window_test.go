package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowValidate(t *testing.T) {
	require.NoError(t, Hours(6).Validate())
	require.NoError(t, Weeks(52).Validate())
	require.NoError(t, Months(6).Validate())

	assert.Error(t, Window{Unit: "days", Amount: 3}.Validate())
	assert.Error(t, Window{Unit: UnitHours, Amount: 0}.Validate())
	assert.Error(t, Window{Unit: UnitWeeks, Amount: -1}.Validate())
}

func TestWindowInterval(t *testing.T) {
	assert.Equal(t, "make_interval(hours => 6)", Hours(6).interval())
	assert.Equal(t, "make_interval(months => 6)", Months(6).interval())
	// make_interval has no weeks argument.
	assert.Equal(t, "make_interval(days => 14)", Weeks(2).interval())
}
