package irbuilder

import "fmt"

// textType is the textbackend's IRType: just a name ("i32", "ptr<i32>", ...).
type textType struct{ name string }

func (t *textType) String() string { return t.name }

// NamedType returns a textbackend IRType with the given name; each call
// allocates a new value.
func NamedType(name string) IRType { return &textType{name: name} }

// textValue is the textbackend's IRValue: an SSA-style register name plus
// its type.
type textValue struct {
	name string
	typ  IRType
}

func (v *textValue) String() string { return v.name }
func (v *textValue) Type() IRType   { return v.typ }

// textBlock is the textbackend's Block: a label plus its accumulated
// instruction text, in program order.
type textBlock struct {
	label string
	instr []string
	term  bool
}

func (b *textBlock) String() string { return b.label }

// TextBackend is a deterministic textual IR emitter used by tests and as
// a placeholder until a real LLVM binding is linked in (see SPEC_FULL.md
// §8 and DESIGN.md's internal/irbuilder entry). It never optimizes or
// verifies — it exists purely so the rest of the compiler has something
// concrete to drive while staying faithful to the Builder interface a
// production backend would implement.
type TextBackend struct {
	ctx     *Context
	blocks  []*textBlock
	current *textBlock
	counter int
}

// NewTextBackend creates a textual backend for one function/module unit.
func NewTextBackend(ctx *Context) *TextBackend {
	return &TextBackend{ctx: ctx}
}

func (tb *TextBackend) Context() *Context { return tb.ctx }

func (tb *TextBackend) fresh(prefix string) string {
	tb.counter++
	return fmt.Sprintf("%%%s%d", prefix, tb.counter)
}

func (tb *TextBackend) emit(s string) {
	if tb.current != nil {
		tb.current.instr = append(tb.current.instr, s)
	}
}

func (tb *TextBackend) Alloca(t IRType, name string) IRValue {
	reg := tb.fresh("a")
	ptrType := NamedType("ptr<" + t.String() + ">")
	tb.emit(fmt.Sprintf("%s = alloca %s ; %s", reg, t, name))
	return &textValue{name: reg, typ: ptrType}
}

func (tb *TextBackend) Load(addr IRValue, q Qualifiers) (IRValue, error) {
	reg := tb.fresh("l")
	tv, _ := addr.(*textValue)
	pointee := "i8"
	if tv != nil {
		pointee = pointeeName(tv.typ.String())
	}
	volatileTag := ""
	if q.Volatile {
		volatileTag = "volatile "
	}
	tb.emit(fmt.Sprintf("%s = %sload %s, %s", reg, volatileTag, pointee, addr))
	return &textValue{name: reg, typ: NamedType(pointee)}, nil
}

func (tb *TextBackend) Store(val IRValue, addr IRValue, q Qualifiers) error {
	if q.Const {
		return &ErrConstStore{Addr: addr}
	}
	volatileTag := ""
	if q.Volatile {
		volatileTag = "volatile "
	}
	tb.emit(fmt.Sprintf("%sstore %s, %s", volatileTag, val, addr))
	return nil
}

func (tb *TextBackend) GEP(base IRValue, indices []IRValue, name string) IRValue {
	reg := tb.fresh("g")
	tb.emit(fmt.Sprintf("%s = gep %s, %v ; %s", reg, base, indices, name))
	bt, _ := base.(*textValue)
	t := NamedType("ptr<i8>")
	if bt != nil {
		t = bt.typ
	}
	return &textValue{name: reg, typ: t}
}

func (tb *TextBackend) Bitcast(val IRValue, to IRType, name string) IRValue {
	reg := tb.fresh("c")
	tb.emit(fmt.Sprintf("%s = bitcast %s to %s ; %s", reg, val, to, name))
	return &textValue{name: reg, typ: to}
}

func (tb *TextBackend) Branch(target Block) {
	tb.emit(fmt.Sprintf("br label %s", target))
	if tb.current != nil {
		tb.current.term = true
	}
}

func (tb *TextBackend) CondBranch(cond IRValue, ifTrue, ifFalse Block) {
	tb.emit(fmt.Sprintf("br %s, label %s, label %s", cond, ifTrue, ifFalse))
	if tb.current != nil {
		tb.current.term = true
	}
}

func (tb *TextBackend) ICmpEq(lhs, rhs IRValue, name string) IRValue {
	reg := tb.fresh("cmp")
	tb.emit(fmt.Sprintf("%s = icmp eq %s, %s ; %s", reg, lhs, rhs, name))
	return &textValue{name: reg, typ: NamedType("bool")}
}

func (tb *TextBackend) Unreachable() {
	tb.emit("unreachable")
	if tb.current != nil {
		tb.current.term = true
	}
}

func (tb *TextBackend) NewBlock(name string) Block {
	b := &textBlock{label: fmt.Sprintf("%%bb.%d.%s", len(tb.blocks), name)}
	tb.blocks = append(tb.blocks, b)
	return b
}

func (tb *TextBackend) SetInsertPoint(b Block) {
	tbk, ok := b.(*textBlock)
	if !ok {
		return
	}
	tb.current = tbk
}

func (tb *TextBackend) CurrentBlock() Block { return tb.current }

func (tb *TextBackend) Call(fn IRValue, args []IRValue, paramHints []IRType, returnHint IRType, conv CallingConvention) (IRValue, error) {
	coerced := make([]IRValue, len(args))
	for i, a := range args {
		coerced[i] = coerceArg(a, paramHints, i, conv)
	}
	reg := tb.fresh("r")
	rt := "void"
	if returnHint != nil {
		rt = returnHint.String()
	}
	tb.emit(fmt.Sprintf("%s = call %s %s(%v)", reg, rt, fn, coerced))
	if returnHint == nil {
		return nil, nil
	}
	return &textValue{name: reg, typ: returnHint}, nil
}

// coerceArg applies spec.md §4.2's C-default-promotion rule for varargs
// calls (small ints widen to i32, f32 widens to f64); non-varargs calls
// pass the value through as-is, relying on the caller to have already
// matched the declared parameter type.
func coerceArg(a IRValue, paramHints []IRType, i int, conv CallingConvention) IRValue {
	if conv != ConvVarargs || i < len(paramHints) {
		return a
	}
	tv, ok := a.(*textValue)
	if !ok {
		return a
	}
	switch tv.typ.String() {
	case "i8", "i16", "bool":
		return &textValue{name: tv.name, typ: NamedType("i32")}
	case "f32":
		return &textValue{name: tv.name, typ: NamedType("f64")}
	default:
		return a
	}
}

func pointeeName(ptrTypeName string) string {
	if len(ptrTypeName) > 5 && ptrTypeName[:4] == "ptr<" && ptrTypeName[len(ptrTypeName)-1] == '>' {
		return ptrTypeName[4 : len(ptrTypeName)-1]
	}
	return "i8"
}

// Dump renders every block emitted so far in program order.
func (tb *TextBackend) Dump() string {
	out := ""
	for _, b := range tb.blocks {
		out += b.label + ":\n"
		for _, ins := range b.instr {
			out += "  " + ins + "\n"
		}
	}
	return out
}
