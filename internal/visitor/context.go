// Package visitor implements the AST visitor / lowering driver (spec.md
// §4.3): it walks a function body, maintains the scoped variable
// registry, pushes CFG blocks as control flow demands, emits IR through
// internal/irbuilder, and coordinates with internal/linear (linear state
// bookkeeping), internal/deferstmt (defer stack + label registry),
// internal/effects (effect resolution + suffix propagation), and
// internal/inline (inline/yield/closure splicing).
//
// Context is the FunctionBuilder aggregate spec.md §9 calls for: rather
// than the Python original's per-function mutable attributes bolted onto
// a shared visitor instance (ast_visitor/base.py's
// declare_variable/lookup_variable/_transfer_linear_ownership and
// friends), every piece of per-function state is a field here, passed by
// pointer through the lowering methods.
package visitor

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/deferstmt"
	"github.com/pythoc-lang/pythoc/internal/effects"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/inline"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/types"
)

// LinearState mirrors internal/linear.State without importing that
// package at the type level — Context records states as plain strings in
// its own VariableInfo (matching cfg.LinearSnapshot's string-keyed
// shape) and only internal/linear interprets them as its State enum.
type LinearState string

const (
	StateUndefined LinearState = "undefined"
	StateActive    LinearState = "active"
	StateConsumed  LinearState = "consumed"
	StateMoved     LinearState = "moved"
)

// VariableInfo is spec.md §3's VariableInfo record.
type VariableInfo struct {
	Name            string
	ScopeLevel      int
	TypeHint        types.Type
	ValueRef        *types.ValueRef
	IsParameter     bool
	LinearStates    map[string]LinearState // path-key -> state
	LinearScopeDepth int
	Source          ast.Node
}

// scope is one lexical scope's name->variable map. Shadowing across
// scopes is allowed; redeclaring inside one scope is a compile error
// (spec.md §4.3 AnnAssign).
type scope struct {
	vars map[string]*VariableInfo
}

// VariableRegistry is the nested-scope lookup structure (spec.md §3).
type VariableRegistry struct {
	scopes []*scope
}

// NewVariableRegistry returns a registry with one (function-level) scope
// already pushed.
func NewVariableRegistry() *VariableRegistry {
	r := &VariableRegistry{}
	r.Push()
	return r
}

func (r *VariableRegistry) Push() { r.scopes = append(r.scopes, &scope{vars: map[string]*VariableInfo{}}) }

func (r *VariableRegistry) Pop() *scope {
	if len(r.scopes) == 0 {
		return nil
	}
	s := r.scopes[len(r.scopes)-1]
	r.scopes = r.scopes[:len(r.scopes)-1]
	return s
}

func (r *VariableRegistry) Depth() int { return len(r.scopes) }

// Declare adds a new variable to the innermost scope, returning an error
// if that scope (not an enclosing one) already declares the name
// (spec.md §4.3: "Redeclaring in the same scope is an error; shadowing
// across scopes is permitted.").
func (r *VariableRegistry) Declare(v *VariableInfo) error {
	top := r.scopes[len(r.scopes)-1]
	if _, dup := top.vars[v.Name]; dup {
		return fmt.Errorf("redeclaration of %q in the same scope", v.Name)
	}
	top.vars[v.Name] = v
	return nil
}

// Lookup searches from the innermost scope outward.
func (r *VariableRegistry) Lookup(name string) (*VariableInfo, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if v, ok := r.scopes[i].vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LoopFrame tracks the header/exit blocks and scope depth of the
// innermost enclosing loop, consulted by Break/Continue lowering.
type LoopFrame struct {
	HeaderBlock cfg.BlockID
	ExitBlock   cfg.BlockID
	ScopeDepth  int
	HasBreak    bool // whether any break targets ExitBlock; see cfg.go's "while True" rule
}

// Context is the per-function lowering aggregate (spec.md §9's
// FunctionBuilder). One Context exists per function compilation; it is
// discarded once the function's CFG, linear checker, and IR have all
// been produced.
type Context struct {
	Session  *registry.Session
	Builder  irbuilder.Builder
	CFG      *cfg.CFG
	Vars     *VariableRegistry
	Defers   *deferstmt.Stack
	Labels   *deferstmt.Registry
	Effects  *effects.ContextStack
	Kernel   *inline.Kernel

	CurrentBlock cfg.BlockID
	ScopeDepth   int
	LoopStack    []*LoopFrame

	EffectDeps map[string]bool // accumulated for the function being compiled
	Callees    []string

	tempCounter int

	FuncName string
	SourceFile string
}

// NewContext creates a fresh lowering context for one function.
func NewContext(session *registry.Session, b irbuilder.Builder, funcName, sourceFile string) *Context {
	g := cfg.New(funcName)
	return &Context{
		Session:    session,
		Builder:    b,
		CFG:        g,
		Vars:       NewVariableRegistry(),
		Defers:     deferstmt.NewStack(),
		Labels:     deferstmt.NewRegistry(),
		Effects:    effects.NewContextStack(),
		Kernel:     inline.NewKernel(),
		EffectDeps: map[string]bool{},
		CurrentBlock: g.EntryID,
		FuncName:   funcName,
		SourceFile: sourceFile,
	}
}

func (c *Context) FreshTemp(prefix string) string {
	c.tempCounter++
	return fmt.Sprintf("%s.%d", prefix, c.tempCounter)
}

func (c *Context) Report(code string, node ast.Node, format string, args ...any) error {
	var span *ast.Span
	if node != nil {
		pos := node.Position()
		span = &ast.Span{Start: pos, End: pos}
	}
	return errors.Wrap(errors.New(code, span, format, args...))
}

// types.Emitter requires a Builder() method; Context.Builder is a field,
// so this small adapter type satisfies the interface without a name
// collision. The visitor always passes &emitterAdapter{c} (or c itself
// via embedding) where types.Emitter is expected.
type emitterAdapter struct{ *Context }

func (e *emitterAdapter) Builder() irbuilder.Builder { return e.Context.Builder }

// Emitter returns c adapted to types.Emitter.
func (c *Context) Emitter() types.Emitter { return &emitterAdapter{c} }

// NewBlock allocates a CFG block and returns its ID, matching spec.md
// §4.4's block-creation rule (called at every branch target, loop
// header/body/exit, match arm, label begin/end).
func (c *Context) NewBlock() cfg.BlockID { return c.CFG.NewBlock() }

// SetCurrent makes block id the current block in the CFG bookkeeping
// only; it does not move the IR builder's insertion point (gotoBlock in
// stmt.go does both).
func (c *Context) SetCurrent(id cfg.BlockID) {
	c.CurrentBlock = id
}

// CaptureSnapshot renders the current function's variable linear states
// into a cfg.LinearSnapshot, the shape internal/linear consumes.
func (c *Context) CaptureSnapshot() cfg.LinearSnapshot {
	snap := cfg.LinearSnapshot{}
	for _, s := range c.Vars.scopes {
		for name, v := range s.vars {
			if len(v.LinearStates) == 0 {
				continue
			}
			paths := make(map[string]string, len(v.LinearStates))
			for p, st := range v.LinearStates {
				paths[p] = string(st)
			}
			snap[name] = paths
		}
	}
	return snap
}

// Terminate marks c.CurrentBlock as terminated and records its exit
// snapshot (spec.md §4.4), matching the point at every Return/Break/
// Continue/goto/unreachable lowering.
func (c *Context) Terminate() {
	c.CFG.Terminate(c.CurrentBlock, c.CaptureSnapshot())
}

// EnsureLive creates a fresh `unreachable_cont` block if the current
// block is already terminated, so lowering of statements that
// syntactically follow a terminator can still produce IR without
// crashing (spec.md §4.4's unreachable_cont rule). It records no edge
// into the new block from the terminated one — the new block truly has
// no live predecessor, matching the spec's "edges into the new block
// exist only from other paths" wording.
func (c *Context) EnsureLive() {
	if blk := c.CFG.Blocks[c.CurrentBlock]; blk != nil && blk.Terminated {
		c.CurrentBlock = c.NewBlock()
	}
}

// PushScope enters a new lexical scope, tracking both the variable
// registry and the linear/defer scope-depth counter together (spec.md
// §3: VariableInfo.linear_scope_depth and DeferEntry.scope_depth are
// both measured against the same nesting).
func (c *Context) PushScope() {
	c.Vars.Push()
	c.ScopeDepth++
}

// PopScope exits the innermost lexical scope, emitting+unregistering its
// defers on the fallthrough path (the caller is responsible for having
// already emitted them on any early exit taken inside the scope).
func (c *Context) PopScope() {
	c.EmitScopeDefers(c.ScopeDepth)
	c.Defers.UnregisterScope(c.ScopeDepth)
	c.Vars.Pop()
	c.ScopeDepth--
}

// EmitScopeDefers emits (does not unregister) every defer registered
// exactly at scopeDepth, in FIFO order (spec.md §4.9). The visitor calls
// this at every exit point — return, break, continue, goto/goto_end
// crossing the scope, and ordinary fallthrough — then unregisters
// separately once the scope itself actually closes.
func (c *Context) EmitScopeDefers(scopeDepth int) {
	for _, e := range c.Defers.ForScope(scopeDepth) {
		c.emitDeferCall(e)
	}
}

// EmitDefersFromDepth emits every defer at minScopeDepth or deeper, in
// FIFO order — used by Return, which exits every scope from the current
// one up to (and including) the function's outermost scope.
func (c *Context) EmitDefersFromDepth(minScopeDepth int) {
	for _, e := range c.Defers.FromScopeUpward(minScopeDepth) {
		c.emitDeferCall(e)
	}
}

// emitDeferCall is a placeholder call-emission hook; a production
// backend binds Entry.Callable (a *types.ValueRef) and Entry.Args
// through the same irbuilder.Builder.Call path ordinary calls use. Kept
// as a named method (not inlined at each call site) so a future
// production IR backend has exactly one place to wire real call codegen
// in.
func (c *Context) emitDeferCall(e deferstmt.Entry) {
	_ = e // no IR is emitted for the deferred call here
}
