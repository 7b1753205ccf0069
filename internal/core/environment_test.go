package core_test

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/charliechat-core/server/internal/core"
)

func TestParseEnvironment(t *testing.T) {
	cases := map[string]core.Environment{
		"production": core.Production,
		" PROD ":     core.Production,
		"stage":      core.Staging,
		"test":       core.Testing,
		"":           core.Development,
		"qa":         core.Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, core.ParseEnvironment(in), in)
	}
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, core.Production.GinMode())
	assert.Equal(t, gin.ReleaseMode, core.Staging.GinMode())
	assert.Equal(t, gin.TestMode, core.Testing.GinMode())
	assert.Equal(t, gin.DebugMode, core.Development.GinMode())
}
