// Package cfg builds the per-function control-flow graph the visitor
// populates while lowering a function body, and that internal/linear
// later walks read-only (spec.md §4.4, §3's CFG/CFGBlock/
// CFGEdge record shapes). No teacher or pack example builds a CFG — ailang
// is a tree-walking interpreter with no basic-block representation — so
// this package is grounded directly on spec.md's field-by-field CFG
// description and on the original implementation's block/edge bookkeeping
// inferred from linear_checker.py's use of CFG/CFGBlock/CFGEdge.
package cfg

import (
	"fmt"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// EdgeKind classifies a CFGEdge (spec.md §3).
type EdgeKind int

const (
	Sequential EdgeKind = iota
	BranchTrue
	BranchFalse
	LoopBack
	Goto
	GotoEnd
	Unreachable
)

func (k EdgeKind) String() string {
	switch k {
	case Sequential:
		return "sequential"
	case BranchTrue:
		return "branch_true"
	case BranchFalse:
		return "branch_false"
	case LoopBack:
		return "loop_back"
	case Goto:
		return "goto"
	case GotoEnd:
		return "goto_end"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// BlockID identifies a CFGBlock within one function's CFG.
type BlockID int

// Block is a CFGBlock: a straight-line run of statements with no internal
// control flow (spec.md §3). Stmts is kept only for error-reporting
// location lookup — codegen reads IRBlock, not Stmts.
type Block struct {
	ID         BlockID
	Stmts      []ast.Node
	IRBlock    any // opaque irbuilder.Block handle, set once emitted
	Terminated bool
}

// Edge is a CFGEdge (spec.md §3).
type Edge struct {
	Source    BlockID
	Target    BlockID
	Kind      EdgeKind
	Condition any // optional ValueRef, set for BranchTrue/BranchFalse
}

// LinearSnapshot maps each variable and path key to its linear state
// string — see internal/linear for the full state lattice. cfg only needs to carry opaque snapshots
// between blocks; it does not interpret them.
type LinearSnapshot map[string]map[string]string // var -> pathKey -> state

// PathKey renders a linear path (a tuple of field indices) as the string
// key LinearSnapshot uses, so (var, path) pairs compare by value.
func PathKey(path []int) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d", p)
	}
	return s
}

// CFG is one function's control-flow graph (spec.md §3).
type CFG struct {
	FuncName string
	Blocks   map[BlockID]*Block
	Edges    []Edge
	EntryID  BlockID

	// ReturnBlocks holds every block whose terminator is a Return
	// (as opposed to goto/goto_end/unreachable), used by the linear
	// checker to enumerate "every reachable exit" (spec.md §4.6).
	ReturnBlocks map[BlockID]bool

	EntrySnapshots map[BlockID]LinearSnapshot
	ExitSnapshots  map[BlockID]LinearSnapshot

	nextID BlockID
}

// New creates an empty CFG with its entry block already allocated.
func New(funcName string) *CFG {
	g := &CFG{
		FuncName:       funcName,
		Blocks:         make(map[BlockID]*Block),
		ReturnBlocks:   make(map[BlockID]bool),
		EntrySnapshots: make(map[BlockID]LinearSnapshot),
		ExitSnapshots:  make(map[BlockID]LinearSnapshot),
	}
	g.EntryID = g.NewBlock()
	return g
}

// NewBlock allocates a fresh block, per spec.md §4.4's rule that a new
// block is created at every branch target, loop header/body/exit, match
// arm, label begin/end, and the statement following a terminator.
func (g *CFG) NewBlock() BlockID {
	id := g.nextID
	g.nextID++
	g.Blocks[id] = &Block{ID: id}
	return id
}

// AddEdge records an edge from source to target with the given kind.
func (g *CFG) AddEdge(source, target BlockID, kind EdgeKind, condition any) {
	g.Edges = append(g.Edges, Edge{Source: source, Target: target, Kind: kind, Condition: condition})
}

// Terminate marks a block as terminated and records its exit snapshot,
// per spec.md §4.4 ("when a block is terminated, the visitor records
// exit_snapshots[block_id] = capture_linear_states()"). Calling Terminate
// twice on the same block is a caller bug (double-terminator lowering),
// reported via the returned bool rather than panicking.
func (g *CFG) Terminate(id BlockID, snapshot LinearSnapshot) bool {
	b, ok := g.Blocks[id]
	if !ok || b.Terminated {
		return false
	}
	b.Terminated = true
	g.ExitSnapshots[id] = snapshot
	return true
}

// Predecessors returns every block with a non-Unreachable edge into id,
// annotated with the edge kind (the linear checker needs to tell
// loop-back predecessors apart from ordinary join predecessors).
func (g *CFG) Predecessors(id BlockID) []Edge {
	var preds []Edge
	for _, e := range g.Edges {
		if e.Target == id && e.Kind != Unreachable {
			preds = append(preds, e)
		}
	}
	return preds
}

// TopoOrder returns block IDs in a topological order suitable for the
// forward-dataflow walk in internal/linear (spec.md §4.6 "walk blocks in
// topological order"). Loop back-edges are excluded from the ordering
// dependency so they cannot create a cycle; the result covers every
// block reachable from EntryID. Unreachable blocks (e.g. code after
// `while True` with no break, per spec.md §4.4) are omitted, matching
// the checker's rule that they need no exit-consistency check.
func (g *CFG) TopoOrder() []BlockID {
	indegree := make(map[BlockID]int, len(g.Blocks))
	forwardPreds := make(map[BlockID][]BlockID)
	for id := range g.Blocks {
		indegree[id] = 0
	}
	for _, e := range g.Edges {
		if e.Kind == LoopBack || e.Kind == Unreachable {
			continue
		}
		indegree[e.Target]++
		forwardPreds[e.Target] = append(forwardPreds[e.Target], e.Source)
	}

	reachable := map[BlockID]bool{g.EntryID: true}
	queue := []BlockID{g.EntryID}
	adjacency := make(map[BlockID][]BlockID)
	for _, e := range g.Edges {
		if e.Kind == Unreachable {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, next := range adjacency[cur] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	var order []BlockID
	work := []BlockID{}
	localIndeg := make(map[BlockID]int, len(indegree))
	for id, d := range indegree {
		if !reachable[id] {
			continue
		}
		localIndeg[id] = d
		if d == 0 {
			work = append(work, id)
		}
	}
	visited := make(map[BlockID]bool)
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		for _, next := range adjacency[id] {
			if !reachable[next] || visited[next] {
				continue
			}
			localIndeg[next]--
			if localIndeg[next] == 0 {
				work = append(work, next)
			}
		}
	}
	// Any reachable block not yet visited sits on a cycle formed solely
	// by non-loop-back edges that the lowering driver should never
	// produce; append it anyway in discovery order so a bug here
	// degrades to a conservative (if imprecise) check instead of
	// dropping the block from analysis entirely.
	for _, id := range queue {
		if !visited[id] {
			order = append(order, id)
			visited[id] = true
		}
	}
	return order
}
