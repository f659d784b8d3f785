package types

import (
	"testing"
	"time"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// fakeEmitter is a minimal Emitter for exercising Type dispatch in
// isolation from the full visitor.
type fakeEmitter struct {
	b       irbuilder.Builder
	counter int
	lastErr string
}

func newFakeEmitter() *fakeEmitter {
	tb := irbuilder.NewTextBackend(&irbuilder.Context{ModuleName: "test"})
	blk := tb.NewBlock("entry")
	tb.SetInsertPoint(blk)
	return &fakeEmitter{b: tb}
}

func (f *fakeEmitter) Builder() irbuilder.Builder { return f.b }
func (f *fakeEmitter) FreshTemp(prefix string) string {
	f.counter++
	return prefix
}
func (f *fakeEmitter) Report(code string, node ast.Node, format string, args ...any) error {
	f.lastErr = code
	return &reportedError{code: code}
}

type reportedError struct{ code string }

func (e *reportedError) Error() string { return e.code }

func TestIntTypeByteSizeAndString(t *testing.T) {
	if I32.ByteSize() != 4 {
		t.Errorf("I32.ByteSize() = %d, want 4", I32.ByteSize())
	}
	if I32.String() != "i32" {
		t.Errorf("I32.String() = %q, want i32", I32.String())
	}
	if U8.String() != "u8" {
		t.Errorf("U8.String() = %q, want u8", U8.String())
	}
}

func TestPtrHashConsAndEqual(t *testing.T) {
	c := NewCache()
	p1 := c.Ptr(I32)
	p2 := c.Ptr(I32)
	if p1 != p2 {
		t.Error("expected hash-consed pointer identity for ptr[i32]")
	}
	if !p1.Equal(p2) {
		t.Error("ptr[i32] should equal itself")
	}
	if p1.Equal(c.Ptr(I64)) {
		t.Error("ptr[i32] must not equal ptr[i64]")
	}
}

func TestArrayDecayToPointer(t *testing.T) {
	em := newFakeEmitter()
	arr := &ArrayType{Elem: I32, Len: 4}
	addr := em.Builder().Alloca(arr.IRType(em.Builder().Context()), "a")
	ref := &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: arr, Address: addr}

	decayed, err := arr.HandleCast(em, ref, nil)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	pt, ok := decayed.TypeHint.(*PtrType)
	if !ok {
		t.Fatalf("decayed type = %T, want *PtrType", decayed.TypeHint)
	}
	if !pt.Pointee.Equal(I32) {
		t.Errorf("decayed pointee = %s, want i32", pt.Pointee)
	}
	if decayed.Kind != KindValue {
		t.Errorf("decayed ValueRef kind = %v, want KindValue", decayed.Kind)
	}
}

func TestArrayLenAttribute(t *testing.T) {
	em := newFakeEmitter()
	arr := &ArrayType{Elem: I32, Len: 10}
	lenRef, err := arr.HandleAttribute(em, nil, "len", nil)
	if err != nil {
		t.Fatalf("len attribute: %v", err)
	}
	if n, ok := lenRef.PyConstValue.(int64); !ok || n != 10 {
		t.Errorf("len = %v, want 10", lenRef.PyConstValue)
	}
}

func TestStructFieldLookup(t *testing.T) {
	st := NewStructType("Point", []StructField{
		{Name: "x", Type: I32},
		{Name: "y", Type: I32},
	})
	if st.ByteSize() != 8 {
		t.Errorf("Point byte size = %d, want 8", st.ByteSize())
	}
	em := newFakeEmitter()
	addr := em.Builder().Alloca(st.IRType(em.Builder().Context()), "p")
	base := &ValueRef{Kind: KindAddress, IRValue: addr, TypeHint: st, Address: addr}
	ref, err := st.HandleAttribute(em, base, "y", nil)
	if err != nil {
		t.Fatalf("field access: %v", err)
	}
	if !ref.TypeHint.Equal(I32) {
		t.Errorf("field y type = %s, want i32", ref.TypeHint)
	}

	if _, err := st.HandleAttribute(em, base, "z", nil); err == nil {
		t.Error("expected error accessing unknown field z")
	}
}

func TestStructConstructorArityMismatch(t *testing.T) {
	st := NewStructType("Pair", []StructField{{Name: "a", Type: I32}, {Name: "b", Type: I32}})
	em := newFakeEmitter()
	_, err := st.HandleCall(em, []*ValueRef{{Kind: KindValue, TypeHint: I32}}, nil)
	if err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestEnumFiniteness(t *testing.T) {
	status := NewEnumType("Status", []EnumVariant{
		{Name: "Ok", Payload: I32, Tag: 0},
		{Name: "Err", Payload: I32, Tag: 1},
	})
	if !status.IsFinite(map[string]bool{}) {
		t.Error("Status should be finite: its variants can be enumerated whatever their i32 payloads")
	}
}

func TestEnumRecursivePayloadDoesNotLoop(t *testing.T) {
	list := NewEnumType("List", nil)
	list.Variants = []EnumVariant{
		{Name: "Nil", Payload: nil},
		{Name: "Cons", Payload: list},
	}
	list.ByName = map[string]int{"Nil": 0, "Cons": 1}
	done := make(chan bool, 1)
	go func() {
		list.IsFinite(map[string]bool{})
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("IsFinite did not return for a self-referential enum")
	}
}

func TestRefinedSingleParamZeroOverhead(t *testing.T) {
	rt, err := NewRefinedType("is_positive", []string{"x"}, []Type{I32}, nil)
	if err != nil {
		t.Fatalf("NewRefinedType: %v", err)
	}
	if rt.ByteSize() != I32.ByteSize() {
		t.Errorf("refined[is_positive] byte size = %d, want %d", rt.ByteSize(), I32.ByteSize())
	}
	em := newFakeEmitter()
	base := &ValueRef{Kind: KindValue, TypeHint: rt}
	self, err := rt.HandleAttribute(em, base, "x", nil)
	if err != nil {
		t.Fatalf("attribute x: %v", err)
	}
	if self != base {
		t.Error("single-param refinement attribute named after the parameter should return the value unchanged")
	}
}

func TestRefinedMultiParamBuildsStruct(t *testing.T) {
	rt, err := NewRefinedType("is_valid_range", []string{"start", "end"}, []Type{I32, I32}, nil)
	if err != nil {
		t.Fatalf("NewRefinedType: %v", err)
	}
	if rt.structType == nil {
		t.Fatal("multi-param refinement should build a backing struct")
	}
	if rt.ByteSize() != 8 {
		t.Errorf("refined[is_valid_range] byte size = %d, want 8", rt.ByteSize())
	}
}

func TestQualifiedDelegatesABI(t *testing.T) {
	q := &Qualified{Inner: I32, Const: true}
	if q.ByteSize() != I32.ByteSize() || q.Alignment() != I32.Alignment() {
		t.Error("Qualified must delegate ABI shape to Inner")
	}
	if q.String() != "const i32" {
		t.Errorf("Qualified.String() = %q, want %q", q.String(), "const i32")
	}
	if Unwrap(q) != I32 {
		t.Error("Unwrap should strip the Qualified wrapper")
	}
}

func TestPromoteBinaryOperands(t *testing.T) {
	cases := []struct {
		l, r Type
		want Type
	}{
		{I32, I64, I64},
		{I32, F32, F32},
		{F32, F64, F64},
		{Bool, I32, I32},
		{&IntType{Bits: 32, Signed: true}, &IntType{Bits: 32, Signed: false}, &IntType{Bits: 32, Signed: false}},
	}
	for _, c := range cases {
		got, err := PromoteBinaryOperands(c.l, c.r)
		if err != nil {
			t.Fatalf("PromoteBinaryOperands(%s, %s): %v", c.l, c.r, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("PromoteBinaryOperands(%s, %s) = %s, want %s", c.l, c.r, got, c.want)
		}
	}
}

func TestValueRefValidateLinearPathInvariant(t *testing.T) {
	v := &ValueRef{Kind: KindValue, TypeHint: I32, VarName: "t"}
	if err := v.Validate(); err == nil {
		t.Error("expected Validate to reject VarName set without LinearPath")
	}
	v.LinearPath = []int{0}
	if err := v.Validate(); err != nil {
		t.Errorf("expected valid ValueRef, got %v", err)
	}
}

func TestIntCastRejectsImplicitPointerConversion(t *testing.T) {
	em := newFakeEmitter()
	ptrRef := &ValueRef{Kind: KindValue, TypeHint: &PtrType{Pointee: I32}}
	_, err := I64.HandleCast(em, ptrRef, nil)
	if err == nil {
		t.Fatal("expected pointer-to-int cast through IntType.HandleCast to be rejected")
	}
	if em.lastErr != "TYP003" {
		t.Errorf("error code = %s, want TYP003", em.lastErr)
	}
}

func TestPtrCastAllowsExplicitIntToPointer(t *testing.T) {
	em := newFakeEmitter()
	intRef := &ValueRef{Kind: KindValue, IRValue: &fakeIRValue{}, TypeHint: I64}
	pt := &PtrType{Pointee: I32}
	out, err := pt.HandleCast(em, intRef, nil)
	if err != nil {
		t.Fatalf("explicit ptr[T](intValue) should be allowed: %v", err)
	}
	if !out.TypeHint.Equal(pt) {
		t.Errorf("cast result type = %s, want %s", out.TypeHint, pt)
	}
}

type fakeIRValue struct{}

func (f *fakeIRValue) String() string                { return "%fake" }
func (f *fakeIRValue) Type() irbuilder.IRType         { return irbuilder.NamedType("i64") }
