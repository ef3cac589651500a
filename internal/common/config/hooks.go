package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// CustomHooks are passed to viper when unmarshalling configuration.
// viper.DecodeHook replaces any hook set before it, so all hooks are composed into one,
// together with the defaults viper would otherwise install.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		QuantityDecodeHook(),
		ResourceListDecodeHook(),
		NodeAllocationPolicyHook(),
	)),
}

func QuantityDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(resource.Quantity{}) {
			return data, nil
		}
		return resource.ParseQuantity(fmt.Sprintf("%v", data))
	}
}

// ResourceListDecodeHook decodes a map of resource names to quantities, e.g. {procs: 4, memory: 8Gi}.
func ResourceListDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(schedulerobjects.ResourceList{}) || f.Kind() != reflect.Map {
			return data, nil
		}
		quantities := make(map[string]string)
		v := reflect.ValueOf(data)
		for _, key := range v.MapKeys() {
			quantities[fmt.Sprintf("%v", key.Interface())] = fmt.Sprintf("%v", v.MapIndex(key).Interface())
		}
		return schedulerobjects.ResourceListFromStrings(quantities)
	}
}

func NodeAllocationPolicyHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(schedulerobjects.NodeAllocationPolicyDefault) {
			return data, nil
		}
		return schedulerobjects.ParseNodeAllocationPolicy(fmt.Sprintf("%v", data))
	}
}
