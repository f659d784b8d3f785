package loader

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pythoc-lang/pythoc/internal/types"
)

func TestClassify_Scalars(t *testing.T) {
	kind, bits := classify(types.I32)
	assert.Equal(t, nativeInt, kind)
	assert.Equal(t, 32, bits)

	kind, bits = classify(types.F64)
	assert.Equal(t, nativeFloat, kind)
	assert.Equal(t, 64, bits)

	kind, _ = classify(types.Bool)
	assert.Equal(t, nativeInt, kind)

	kind, _ = classify(types.Void)
	assert.Equal(t, nativeVoid, kind)
}

func TestClassify_Pointer(t *testing.T) {
	kind, bits := classify(&types.PtrType{Pointee: types.I32})
	assert.Equal(t, nativePointer, kind)
	assert.Equal(t, 64, bits)
}

func TestClassify_LinearSkipsZeroSized(t *testing.T) {
	kind, _ := classify(&types.LinearType{})
	assert.Equal(t, nativeSkip, kind)
}

func TestClassify_LinearWithPayload(t *testing.T) {
	kind, bits := classify(&types.LinearType{Payload: types.I64})
	assert.Equal(t, nativeInt, kind)
	assert.Equal(t, 64, bits)
}

func TestClassify_RefinedIsTransparent(t *testing.T) {
	rt, err := types.NewRefinedType("positive", []string{"value"}, []types.Type{types.I32}, nil)
	assert.NoError(t, err)

	kind, bits := classify(rt)
	assert.Equal(t, nativeInt, kind)
	assert.Equal(t, 32, bits)
}

func TestClassify_Aggregate(t *testing.T) {
	st := types.NewStructType("Point", []types.StructField{
		{Name: "x", Type: types.I32},
		{Name: "y", Type: types.I32},
	})
	kind, bits := classify(st)
	assert.Equal(t, nativeAggregate, kind)
	assert.Equal(t, st.ByteSize()*8, bits)
}

func TestGoType(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(int32(0)), goType(nativeInt, 32))
	assert.Equal(t, reflect.TypeOf(int64(0)), goType(nativeInt, 64))
	assert.Equal(t, reflect.TypeOf(float32(0)), goType(nativeFloat, 32))
	assert.Equal(t, reflect.TypeOf(float64(0)), goType(nativeFloat, 64))
	assert.Equal(t, reflect.TypeOf(uintptr(0)), goType(nativePointer, 64))
	assert.Nil(t, goType(nativeVoid, 0))
	assert.Nil(t, goType(nativeSkip, 0))
}

func TestVarargsPromote(t *testing.T) {
	kind, bits := varargsPromote(nativeInt, 8)
	assert.Equal(t, nativeInt, kind)
	assert.Equal(t, 32, bits)

	kind, bits = varargsPromote(nativeFloat, 32)
	assert.Equal(t, nativeFloat, kind)
	assert.Equal(t, 64, bits)

	kind, bits = varargsPromote(nativeInt, 64)
	assert.Equal(t, nativeInt, kind)
	assert.Equal(t, 64, bits)
}
