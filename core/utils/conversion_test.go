package utils_test

import (
	"testing"

	"license-reconciler/core/utils"

	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	assert.Equal(t, 42, utils.ToInt(42))
	assert.Equal(t, 42, utils.ToInt(int64(42)))
	assert.Equal(t, 42, utils.ToInt(42.0))
	assert.Equal(t, 42, utils.ToInt("42"))
	assert.Equal(t, 42, utils.ToInt(" 42 "))
	assert.Equal(t, 0, utils.ToInt("garbage"))
}

func TestToFloat(t *testing.T) {
	assert.InDelta(t, 49.99, utils.ToFloat(49.99), 0.0001)
	assert.InDelta(t, 49.99, utils.ToFloat("49.99"), 0.0001)
	assert.InDelta(t, 0, utils.ToFloat(nil), 0.0001)
}

func TestToString(t *testing.T) {
	assert.Equal(t, "abc", utils.ToString("abc"))
	// External count IDs sometimes arrive as JSON numbers.
	assert.Equal(t, "1500000", utils.ToString(1500000.0))
}

func TestToBool(t *testing.T) {
	assert.True(t, utils.ToBool(true))
	assert.True(t, utils.ToBool(1))
	assert.True(t, utils.ToBool("1"))
	assert.True(t, utils.ToBool("TRUE"))
	assert.False(t, utils.ToBool(0))
	assert.False(t, utils.ToBool(nil))
}
