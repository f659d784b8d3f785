package types

import (
	"fmt"
	"sync"

	"github.com/pythoc-lang/pythoc/internal/irbuilder"
)

// Cache hash-conses TypeObject variants keyed on (variant tag,
// parameters), per spec.md §9's suggested arena design for dynamic type
// objects. Two requests for, say, ptr[i32] return the same *PtrType, so
// Type.Equal can usually short-circuit on pointer identity even though
// callers must not rely on that alone.
type Cache struct {
	mu    sync.Mutex
	byKey map[string]Type
}

// NewCache creates an empty type cache. One Cache is shared per
// compilation unit (internal/registry.Session owns it).
func NewCache() *Cache {
	return &Cache{byKey: make(map[string]Type)}
}

func (c *Cache) get(key string) (Type, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.byKey[key]
	return t, ok
}

func (c *Cache) put(key string, t Type) Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byKey[key]; ok {
		return existing
	}
	c.byKey[key] = t
	return t
}

// Int interns a fixed-width integer type.
func (c *Cache) Int(bits int, signed bool) *IntType {
	key := fmt.Sprintf("int:%d:%v", bits, signed)
	if t, ok := c.get(key); ok {
		return t.(*IntType)
	}
	return c.put(key, &IntType{Bits: bits, Signed: signed}).(*IntType)
}

// Bool returns the canonical bool type singleton.
func (c *Cache) Bool() *BoolType { return Bool }

// Void returns the canonical void type singleton.
func (c *Cache) Void() *VoidType { return Void }

// Float interns a floating-point type.
func (c *Cache) Float(bits int) *FloatType {
	key := fmt.Sprintf("float:%d", bits)
	if t, ok := c.get(key); ok {
		return t.(*FloatType)
	}
	return c.put(key, &FloatType{Bits: bits}).(*FloatType)
}

// Ptr interns ptr[pointee].
func (c *Cache) Ptr(pointee Type) *PtrType {
	key := "ptr:" + pointee.String()
	if t, ok := c.get(key); ok {
		return t.(*PtrType)
	}
	return c.put(key, &PtrType{Pointee: pointee}).(*PtrType)
}

// Array interns arr[elem, n].
func (c *Cache) Array(elem Type, n int) *ArrayType {
	key := fmt.Sprintf("array:%s:%d", elem.String(), n)
	if t, ok := c.get(key); ok {
		return t.(*ArrayType)
	}
	return c.put(key, &ArrayType{Elem: elem, Len: n}).(*ArrayType)
}

// Qualify interns a const/volatile wrapper over inner.
func (c *Cache) Qualify(inner Type, q irbuilder.Qualifiers) *Qualified {
	key := fmt.Sprintf("qual:%v:%v:%s", q.Const, q.Volatile, inner.String())
	if t, ok := c.get(key); ok {
		return t.(*Qualified)
	}
	return c.put(key, &Qualified{Inner: inner, Const: q.Const, Volatile: q.Volatile}).(*Qualified)
}

// Struct interns a named struct type. Structs are keyed purely on name —
// a pythoc compile unit never declares two distinct structs sharing a
// name, so this also doubles as the struct-declaration registry lookup
// the visitor uses when resolving a `ClassDef`-declared annotation.
func (c *Cache) Struct(name string, fields []StructField) *StructType {
	key := "struct:" + name
	if t, ok := c.get(key); ok {
		return t.(*StructType)
	}
	return c.put(key, NewStructType(name, fields)).(*StructType)
}

// Enum interns a named enum type, analogous to Struct above.
func (c *Cache) Enum(name string, variants []EnumVariant) *EnumType {
	key := "enum:" + name
	if t, ok := c.get(key); ok {
		return t.(*EnumType)
	}
	return c.put(key, NewEnumType(name, variants)).(*EnumType)
}

// FuncPtr interns a function-pointer signature.
func (c *Cache) FuncPtr(params []Type, ret Type, variadic bool) *FuncPtrType {
	key := "func:" + ret.String() + ":"
	for _, p := range params {
		key += p.String() + ","
	}
	if variadic {
		key += "..."
	}
	if t, ok := c.get(key); ok {
		return t.(*FuncPtrType)
	}
	return c.put(key, &FuncPtrType{Params: params, Return: ret, Variadic: variadic}).(*FuncPtrType)
}
