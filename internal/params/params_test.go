package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	c := NewCoercer([]string{"Port"}, []string{"Ratio"})

	tests := []struct {
		name  string
		param string
		raw   string
		want  Value
	}{
		{name: "digits become int", param: "Timeout", raw: "42", want: Int(42)},
		{name: "decimal becomes float", param: "Timeout", raw: "42.5", want: Float(42.5)},
		{name: "text stays string", param: "Timeout", raw: "abc", want: String("abc")},
		{name: "forced int strips leading zeros", param: "Port", raw: "007", want: Int(7)},
		{name: "negative number is float", param: "Offset", raw: "-5", want: Float(-5)},
		{name: "forced int negative", param: "Port", raw: "-5", want: Int(-5)},
		{name: "forced int falls through to float", param: "Port", raw: "8.5", want: Float(8.5)},
		{name: "forced float whole number", param: "Ratio", raw: "3", want: Int(3)},
		{name: "forced float decimal", param: "Ratio", raw: "0.25", want: Float(0.25)},
		{name: "forced float unparsable", param: "Ratio", raw: "half", want: String("half")},
		{name: "exponent is float", param: "Big", raw: "1e3", want: Float(1000)},
		{name: "empty string", param: "Empty", raw: "", want: String("")},
		{name: "path stays string", param: "JCHome", raw: "/opt/jc", want: String("/opt/jc")},
		{name: "version-like stays string", param: "Version", raw: "1.2.3", want: String("1.2.3")},
		{name: "hex float stays string", param: "Mask", raw: "0x1p4", want: String("0x1p4")},
		{name: "signed hex float stays string", param: "Mask", raw: "-0X1P-2", want: String("-0X1P-2")},
		{name: "forced float hex stays string", param: "Ratio", raw: "0x10", want: String("0x10")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Coerce(tt.param, tt.raw)
			assert.True(t, tt.want.Equal(got), "Coerce(%q, %q) = %v (%s), want %v (%s)",
				tt.param, tt.raw, got, got.Kind(), tt.want, tt.want.Kind())
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "42.5", Float(42.5).String())
	assert.Equal(t, "30.0", Float(30).String())
	assert.Equal(t, "abc", String("abc").String())
}

func TestValueAccessors(t *testing.T) {
	i, ok := Int(7).AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(7), i)

	_, ok = Int(7).AsFloat()
	assert.False(t, ok)

	f, ok := Float(1.5).AsFloat()
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	s, ok := String("x").AsString()
	require.True(t, ok)
	assert.Equal(t, "x", s)

	assert.Equal(t, int64(7), Int(7).Any())
	assert.Equal(t, 1.5, Float(1.5).Any())
	assert.Equal(t, "x", String("x").Any())
}

func TestStore(t *testing.T) {
	p := Params{}

	assert.True(t, p.Store("A", Int(1), false))
	assert.False(t, p.Store("A", Int(2), false), "set-if-absent must keep the first value")
	assert.True(t, p["A"].Equal(Int(1)))

	assert.True(t, p.Store("A", Int(3), true))
	assert.True(t, p["A"].Equal(Int(3)))
}

func TestCloneIsIndependent(t *testing.T) {
	p := Params{"A": String("a")}
	c := p.Clone()
	c["B"] = String("b")

	assert.False(t, p.Has("B"))
	assert.Equal(t, []string{"A", "B"}, c.Keys())

	var nilParams Params
	assert.NotNil(t, nilParams.Clone())
}

func TestData(t *testing.T) {
	p := Params{"Timeout": Int(30), "Name": String("web")}
	data := p.Data()

	assert.Equal(t, int64(30), data["Timeout"])
	assert.Equal(t, "web", data["Name"])
}
