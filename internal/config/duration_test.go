package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, d.Duration())

	out, err := yaml.Marshal(Duration(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "30s\n", string(out))
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, time.Duration(0), d.Duration())

	out, err := json.Marshal(Duration(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"1m0s"`, string(out))
}

func TestDuration_Invalid(t *testing.T) {
	t.Parallel()

	var d Duration
	assert.Error(t, yaml.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}
