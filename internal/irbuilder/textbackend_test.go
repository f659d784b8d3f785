package irbuilder

import "testing"

func TestTextBackendStoreConstRejected(t *testing.T) {
	tb := NewTextBackend(&Context{ModuleName: "m"})
	entry := tb.NewBlock("entry")
	tb.SetInsertPoint(entry)

	addr := tb.Alloca(NamedType("i32"), "x")
	val := &textValue{name: "%lit", typ: NamedType("i32")}

	if err := tb.Store(val, addr, Qualifiers{Const: true}); err == nil {
		t.Fatal("expected ErrConstStore, got nil")
	} else if _, ok := err.(*ErrConstStore); !ok {
		t.Fatalf("expected *ErrConstStore, got %T", err)
	}

	if err := tb.Store(val, addr, Qualifiers{}); err != nil {
		t.Fatalf("unexpected error storing to non-const address: %v", err)
	}
}

func TestTextBackendLoadStoreRoundTrip(t *testing.T) {
	tb := NewTextBackend(&Context{})
	entry := tb.NewBlock("entry")
	tb.SetInsertPoint(entry)

	addr := tb.Alloca(NamedType("i32"), "x")
	val := &textValue{name: "%lit", typ: NamedType("i32")}
	if err := tb.Store(val, addr, Qualifiers{}); err != nil {
		t.Fatalf("store: %v", err)
	}
	loaded, err := tb.Load(addr, Qualifiers{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Type().String() != "i32" {
		t.Errorf("loaded type = %s, want i32", loaded.Type())
	}
}

func TestVarargsPromotion(t *testing.T) {
	tb := NewTextBackend(&Context{})
	entry := tb.NewBlock("entry")
	tb.SetInsertPoint(entry)

	smallInt := &textValue{name: "%v", typ: NamedType("i8")}
	fn := &textValue{name: "@printf", typ: NamedType("ptr<func>")}
	_, err := tb.Call(fn, []IRValue{smallInt}, nil, nil, ConvVarargs)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	dump := tb.Dump()
	if dump == "" {
		t.Fatal("expected non-empty dump")
	}
	if got := coerceArg(smallInt, nil, 0, ConvVarargs).Type().String(); got != "i32" {
		t.Errorf("promoted vararg type = %s, want i32", got)
	}
}
