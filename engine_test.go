package minimact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimact/minimact-sub000/internal/config"
)

func TestNewEngineDefaults(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	assert.False(t, e.Sealed())
	assert.Empty(t, e.RegisteredTypes())
}

func TestWithConfigRejectsInvalid(t *testing.T) {
	bad := config.DefaultConfig()
	bad.DemotionRatio = 2.0

	_, err := NewEngine(WithConfig(bad))
	assert.Error(t, err)
}

func TestRegisterComponentType(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	require.NoError(t, e.RegisterComponentType("counter", nil))
	assert.Equal(t, []string{"counter"}, e.RegisteredTypes())

	err = e.RegisterComponentType("counter", nil)
	assert.ErrorIs(t, err, ErrComponentTypeExists)
}

func TestSealBlocksRegistration(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.RegisterComponentType("counter", nil))
	e.Seal()

	err = e.RegisterComponentType("timer", nil)
	assert.ErrorIs(t, err, ErrEngineSealed)
}

func TestNewComponentRequiresRegisteredType(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.NewComponent("counter", "c1")
	assert.ErrorIs(t, err, ErrComponentTypeNotRegistered)

	require.NoError(t, e.RegisterComponentType("counter", nil))

	_, err = e.NewComponent("counter", "")
	assert.ErrorIs(t, err, ErrComponentIDRequired)

	c, err := e.NewComponent("counter", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "counter", c.TypeName)
}
