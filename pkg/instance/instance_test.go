package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersExplicitInstance(t *testing.T) {
	t.Setenv("PACKDROP_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "api-7", ID())
}

func TestIDFallsBackToPlatformVariable(t *testing.T) {
	t.Setenv("PACKDROP_INSTANCE_ID", "")
	t.Setenv("K_REVISION", "")
	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "web.1", ID())
}

func TestIDNeverEmpty(t *testing.T) {
	for _, key := range idEnvVars {
		t.Setenv(key, "")
	}
	assert.NotEmpty(t, ID())
}
