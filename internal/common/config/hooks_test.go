package config

import (
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

type hookedConfig struct {
	Memory   resource.Quantity
	PerTask  schedulerobjects.ResourceList
	Policy   schedulerobjects.NodeAllocationPolicy
	Features []string
}

func decode(t *testing.T, input map[string]interface{}) (hookedConfig, error) {
	var rv hookedConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			QuantityDecodeHook(),
			ResourceListDecodeHook(),
			NodeAllocationPolicyHook(),
		),
		Result: &rv,
	})
	require.NoError(t, err)
	return rv, decoder.Decode(input)
}

func TestCustomHooks(t *testing.T) {
	c, err := decode(t, map[string]interface{}{
		"memory":   "8Gi",
		"perTask":  map[string]interface{}{"procs": 2, "memory": "1Gi"},
		"policy":   "fastest",
		"features": "gpu,ib",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Memory.Cmp(resource.MustParse("8Gi")))
	assert.Equal(t, 2, c.PerTask.Procs())
	memory := c.PerTask.Memory()
	assert.Equal(t, 0, memory.Cmp(resource.MustParse("1Gi")))
	assert.Equal(t, schedulerobjects.NodeAllocationPolicyFastest, c.Policy)
	assert.Equal(t, []string{"gpu", "ib"}, c.Features)
}

func TestCustomHooks_Invalid(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"bad quantity":      {"memory": "lots"},
		"bad resource list": {"perTask": map[string]interface{}{"procs": "many"}},
		"bad policy":        {"policy": "random"},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, input)
			assert.Error(t, err)
		})
	}
}
