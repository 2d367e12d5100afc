package kwargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergePrecedence(t *testing.T) {
	section := Args{"filters": 16, "kernel": 5}
	instance := Args{"filters": 24}
	explicit := Args{"filters": 32}

	got := Merge(section, nil, instance, explicit)
	assert.Equal(t, Args{"filters": 32, "kernel": 5}, got)
}

func TestMergeNested(t *testing.T) {
	section := Args{"pool": map[string]interface{}{"size": 3, "padding": "same"}, "rate": 0.1}
	explicit := Args{"pool": Args{"size": 2}}

	got := Merge(section, explicit)
	assert.Equal(t, Args{"pool": Args{"size": 2, "padding": "same"}, "rate": 0.1}, got)

	s := New().AddNested("pool", "", New().Add("size", "pool_size", 4).Add("padding", "", "valid"))
	assert.Equal(t, Args{"pool": Args{"pool_size": 2, "padding": "same"}}, s.Resolve(got, true))

	// the inputs are not touched and not shared
	got["pool"].(Args)["size"] = 7
	assert.Equal(t, Args{"size": 2}, explicit["pool"])
	assert.Equal(t, 3, section["pool"].(map[string]interface{})["size"])

	// a scalar replaces a mapping outright
	assert.Equal(t, Args{"pool": nil, "rate": 0.1}, Merge(section, Args{"pool": nil}))
}

func TestGetters(t *testing.T) {
	assert := assert.New(t)
	a := Args{
		"i":    3,
		"f":    0.5,
		"yf":   2.0, // yaml decodes whole numbers in float form sometimes
		"b":    true,
		"s":    "same",
		"t":    []interface{}{2, 3},
		"null": nil,
	}

	assert.Equal(3, a.Int("i", 0))
	assert.Equal(2, a.Int("yf", 0))
	assert.Equal(9, a.Int("f", 9))
	assert.Equal(0.5, a.Float("f", 0))
	assert.Equal(3.0, a.Float("i", 0))
	assert.True(a.Bool("b", false))
	assert.True(a.Bool("missing", true))
	assert.Equal("same", a.String("s", "valid"))
	assert.Equal("valid", a.String("null", "valid"))
	assert.Equal([]int{2, 3}, a.Ints("t", 2, 1))
	assert.Equal([]int{3, 3}, a.Ints("i", 2, 1))
	assert.Equal([]int{1, 1}, a.Ints("t", 3, 1)[:2])
	assert.Equal([]int{1, 1}, a.Ints("missing", 2, 1))
}

func TestPop(t *testing.T) {
	a := Args{"method": "relu"}
	assert.Equal(t, "relu", a.Pop("method", "sigmoid"))
	assert.Equal(t, "sigmoid", a.Pop("method", "sigmoid"))
	assert.False(t, a.Has("method"))
}

func TestAsArgs(t *testing.T) {
	m, ok := AsArgs(map[interface{}]interface{}{"k": 1, 2: "two"})
	assert.True(t, ok)
	assert.Equal(t, Args{"k": 1, "2": "two"}, m)

	_, ok = AsArgs([]int{1})
	assert.False(t, ok)
}
