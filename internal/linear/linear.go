// Package linear implements the forward-dataflow linear-resource checker
// (spec.md §4.6): it validates, from the snapshots the AST visitor
// already recorded while lowering a function, that every linear token is
// consumed exactly once on every reachable path from entry to exit. It
// is a direct port of
// original_source/pythoc/cfg/linear_checker.py's LinearChecker, carrying
// over its merge-point/loop-invariant/exit-consistency structure and its
// "effective exit snapshot" reconciliation almost line for line — the
// algorithm is unusually precise about when a block's recorded exit
// snapshot can be trusted, and reproducing that precision in a cleaner
// shape would risk silently changing its soundness.
package linear

import (
	"fmt"
	"sort"

	"github.com/pythoc-lang/pythoc/internal/ast"
	"github.com/pythoc-lang/pythoc/internal/cfg"
	"github.com/pythoc-lang/pythoc/internal/errors"
)

// State is one entry in a LinearSnapshot.
type State string

const (
	Undefined State = "undefined"
	Active    State = "active"
	Consumed  State = "consumed"
	Moved     State = "moved"
)

func (s State) isActive() bool { return s == Active }

// Snapshot mirrors cfg.LinearSnapshot but with a typed State instead of
// a bare string, for the checker's own bookkeeping; cfg.LinearSnapshot
// stays string-keyed since internal/cfg must not import internal/linear.
type Snapshot map[string]map[string]State

func fromCFG(s cfg.LinearSnapshot) Snapshot {
	out := make(Snapshot, len(s))
	for v, paths := range s {
		out[v] = make(map[string]State, len(paths))
		for p, st := range paths {
			out[v][p] = State(st)
		}
	}
	return out
}

func copySnapshot(s Snapshot) Snapshot {
	out := make(Snapshot, len(s))
	for v, paths := range s {
		cp := make(map[string]State, len(paths))
		for p, st := range paths {
			cp[p] = st
		}
		out[v] = cp
	}
	return out
}

// Compatible implements spec.md §4.6's exact merge rule: two snapshots
// are compatible iff, for every (var, path), both are active or both
// are not-active.
func Compatible(s1, s2 Snapshot) bool {
	vars := unionVarNames(s1, s2)
	for _, v := range vars {
		paths := unionPathKeys(s1[v], s2[v])
		for _, p := range paths {
			if lookup(s1, v, p).isActive() != lookup(s2, v, p).isActive() {
				return false
			}
		}
	}
	return true
}

func lookup(s Snapshot, v, p string) State {
	paths, ok := s[v]
	if !ok {
		return Undefined
	}
	st, ok := paths[p]
	if !ok {
		return Undefined
	}
	return st
}

func unionVarNames(snaps ...Snapshot) []string {
	set := map[string]bool{}
	for _, s := range snaps {
		for v := range s {
			set[v] = true
		}
	}
	return sortedKeys(set)
}

func unionPathKeys(maps ...map[string]State) []string {
	set := map[string]bool{}
	for _, m := range maps {
		for p := range m {
			set[p] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Diff is one (var, path) pair whose active-ness differs between two
// snapshots, used to build a human-readable error message.
type Diff struct {
	PathStr string
	States  []StateAt
}

// StateAt names the state recorded by one predecessor/exit point.
type StateAt struct {
	BlockID cfg.BlockID
	State   State
}

func pathStr(v, p string) string {
	if p == "" {
		return v
	}
	return fmt.Sprintf("%s[%s]", v, p)
}

func findDiffs(s1, s2 Snapshot) []Diff {
	var diffs []Diff
	for _, v := range unionVarNames(s1, s2) {
		for _, p := range unionPathKeys(s1[v], s2[v]) {
			st1, st2 := lookup(s1, v, p), lookup(s2, v, p)
			if st1.isActive() != st2.isActive() {
				diffs = append(diffs, Diff{PathStr: pathStr(v, p), States: []StateAt{{State: st1}, {State: st2}}})
			}
		}
	}
	return diffs
}

// ErrorKind classifies a linear violation, matching
// original_source/pythoc/cfg/linear_checker.py's LinearError.kind values
// 1:1 (see also errors.LIN001..LIN008).
type ErrorKind string

const (
	MergeInconsistent     ErrorKind = "merge_inconsistent"
	LoopInvariantViolated ErrorKind = "loop_invariant_violated"
	UnconsumedAtExit      ErrorKind = "unconsumed_at_exit"
	ExitInconsistent      ErrorKind = "exit_inconsistent"
)

// code maps an ErrorKind to its errors.LIN* taxonomy entry.
func (k ErrorKind) code() string {
	switch k {
	case MergeInconsistent:
		return errors.LIN004
	case LoopInvariantViolated:
		return errors.LIN006
	case UnconsumedAtExit:
		return errors.LIN001
	case ExitInconsistent:
		return errors.LIN005
	default:
		return errors.LIN001
	}
}

// Error describes one linear-checker violation.
type Error struct {
	Kind    ErrorKind
	BlockID cfg.BlockID
	Message string
	Diffs   []Diff
	Node    ast.Node
}

// ToReport converts a linear.Error into the project-wide *errors.Report
// shape, so callers can surface it through the same diagnostic pipeline
// as every other compiler phase.
func (e Error) ToReport() *errors.Report {
	var span *ast.Span
	if e.Node != nil {
		pos := e.Node.Position()
		span = &ast.Span{Start: pos, End: pos}
	}
	r := errors.New(e.Kind.code(), span, "%s", e.Message)
	if len(e.Diffs) > 0 {
		paths := make([]string, len(e.Diffs))
		for i, d := range e.Diffs {
			paths[i] = d.PathStr
		}
		r = r.WithData("paths", paths)
	}
	r = r.WithData("block", int(e.BlockID))
	return r
}

// Checker runs the forward-dataflow linear check over one function's CFG.
type Checker struct {
	graph *cfg.CFG

	entrySnapshots map[cfg.BlockID]Snapshot
	exitSnapshots  map[cfg.BlockID]Snapshot

	// recordedExit holds the snapshots the visitor captured in-line
	// while lowering (spec.md §4.4 "exit_snapshots[block_id] =
	// capture_linear_states()"); the checker never recomputes these,
	// only validates their compatibility at joins/exits.
	recordedExit map[cfg.BlockID]Snapshot

	errors []Error
}

// NewChecker builds a Checker for g, with the exit snapshots the visitor
// already recorded during lowering (g.ExitSnapshots, converted once).
func NewChecker(g *cfg.CFG) *Checker {
	recorded := make(map[cfg.BlockID]Snapshot, len(g.ExitSnapshots))
	for id, s := range g.ExitSnapshots {
		recorded[id] = fromCFG(s)
	}
	return &Checker{
		graph:        g,
		recordedExit: recorded,
	}
}

// Check runs the full algorithm (spec.md §4.6 steps 1-3) and returns
// every violation found. initial is the entry snapshot built from the
// function's linear-bearing parameters (each set to Active).
func (c *Checker) Check(initial Snapshot) []Error {
	c.errors = nil
	c.entrySnapshots = map[cfg.BlockID]Snapshot{c.graph.EntryID: copySnapshot(initial)}
	c.exitSnapshots = map[cfg.BlockID]Snapshot{}

	for _, id := range c.graph.TopoOrder() {
		if id != c.graph.EntryID {
			if _, ok := c.entrySnapshots[id]; !ok {
				entry := c.computeEntrySnapshot(id)
				if entry == nil {
					continue
				}
				c.entrySnapshots[id] = entry
			}
		}
		entry, ok := c.entrySnapshots[id]
		if !ok {
			continue
		}
		exit := c.simulateBlock(id, entry)
		if exit == nil {
			continue
		}
		c.exitSnapshots[id] = exit

		for _, e := range c.successors(id) {
			if e.Kind == cfg.LoopBack {
				c.checkLoopInvariant(e, exit)
				continue
			}
			if _, ok := c.entrySnapshots[e.Target]; !ok {
				c.entrySnapshots[e.Target] = copySnapshot(exit)
			}
		}
	}

	c.checkMergePoints()
	c.checkFunctionExit()
	return c.errors
}

func (c *Checker) successors(id cfg.BlockID) []cfg.Edge {
	var out []cfg.Edge
	for _, e := range c.graph.Edges {
		if e.Source == id && e.Kind != cfg.Unreachable {
			out = append(out, e)
		}
	}
	return out
}

func (c *Checker) computeEntrySnapshot(id cfg.BlockID) Snapshot {
	type predSnap = struct {
		edge cfg.Edge
		snap Snapshot
	}
	var preds []predSnap
	for _, e := range c.graph.Predecessors(id) {
		if e.Kind == cfg.LoopBack {
			continue
		}
		if s, ok := c.exitSnapshots[e.Source]; ok {
			preds = append(preds, predSnap{edge: e, snap: s})
		}
	}
	if len(preds) == 0 {
		return nil
	}
	if len(preds) == 1 {
		return copySnapshot(preds[0].snap)
	}
	first := preds[0].snap
	for _, p := range preds[1:] {
		if !Compatible(first, p.snap) {
			c.reportMergeInconsistent(id, preds[0].snap, preds)
			return copySnapshot(first)
		}
	}
	return copySnapshot(first)
}

func (c *Checker) reportMergeInconsistent(blockID cfg.BlockID, _ Snapshot, preds []struct {
	edge cfg.Edge
	snap Snapshot
}) {
	allVars := map[string]bool{}
	for _, p := range preds {
		for v := range p.snap {
			allVars[v] = true
		}
	}
	var diffs []Diff
	for _, v := range sortedKeys(allVars) {
		allPaths := map[string]bool{}
		for _, p := range preds {
			for path := range p.snap[v] {
				allPaths[path] = true
			}
		}
		for _, path := range sortedKeys(allPaths) {
			states := make([]StateAt, 0, len(preds))
			activeSeen := map[bool]bool{}
			for _, p := range preds {
				st := lookup(p.snap, v, path)
				states = append(states, StateAt{BlockID: p.edge.Source, State: st})
				activeSeen[st.isActive()] = true
			}
			if len(activeSeen) > 1 {
				diffs = append(diffs, Diff{PathStr: pathStr(v, path), States: states})
			}
		}
	}
	c.errors = append(c.errors, Error{
		Kind:    MergeInconsistent,
		BlockID: blockID,
		Message: fmt.Sprintf("inconsistent linear states at merge point (block %d)", blockID),
		Diffs:   diffs,
	})
}

func (c *Checker) checkMergePoints() {
	for id := range c.graph.Blocks {
		var preds []cfg.Edge
		for _, e := range c.graph.Predecessors(id) {
			if e.Kind != cfg.LoopBack {
				preds = append(preds, e)
			}
		}
		if len(preds) <= 1 {
			continue
		}
		type predSnap struct {
			edge cfg.Edge
			snap Snapshot
		}
		var withSnap []predSnap
		for _, e := range preds {
			if s, ok := c.exitSnapshots[e.Source]; ok {
				withSnap = append(withSnap, predSnap{edge: e, snap: s})
			}
		}
		if len(withSnap) <= 1 {
			continue
		}
		first := withSnap[0].snap
		for _, p := range withSnap[1:] {
			if !Compatible(first, p.snap) {
				wrapped := make([]struct {
					edge cfg.Edge
					snap Snapshot
				}, len(withSnap))
				for i, w := range withSnap {
					wrapped[i] = struct {
						edge cfg.Edge
						snap Snapshot
					}{w.edge, w.snap}
				}
				c.reportMergeInconsistent(id, first, wrapped)
				break
			}
		}
	}
}

func (c *Checker) simulateBlock(id cfg.BlockID, _ Snapshot) Snapshot {
	if s, ok := c.recordedExit[id]; ok {
		return copySnapshot(s)
	}
	return nil
}

func (c *Checker) checkLoopInvariant(backEdge cfg.Edge, exit Snapshot) {
	headerEntry, ok := c.entrySnapshots[backEdge.Target]
	if !ok {
		return
	}
	if Compatible(exit, headerEntry) {
		return
	}
	diffs := findDiffs(headerEntry, exit)
	c.errors = append(c.errors, Error{
		Kind:    LoopInvariantViolated,
		BlockID: backEdge.Source,
		Message: fmt.Sprintf("loop body changes linear state at block %d", backEdge.Source),
		Diffs:   diffs,
	})
}

// effectiveExitSnapshot reconciles a block's entry and recorded exit
// snapshot so a linear token already consumed before the block can never
// appear "resurrected" at exit (spec.md: ported verbatim from
// _get_effective_exit_snapshot's merge rule).
func (c *Checker) effectiveExitSnapshot(id cfg.BlockID) Snapshot {
	entry, hasEntry := c.entrySnapshots[id]
	exit, hasExit := c.exitSnapshots[id]

	if hasEntry && hasExit {
		merged := Snapshot{}
		for _, v := range unionVarNames(entry, exit) {
			merged[v] = map[string]State{}
			for _, p := range unionPathKeys(entry[v], exit[v]) {
				es, xs := lookup(entry, v, p), lookup(exit, v, p)
				switch {
				case es == Consumed:
					merged[v][p] = Consumed
				case es == Active && xs == Consumed:
					merged[v][p] = Consumed
				case es == Active && xs == Active:
					merged[v][p] = Active
				case es == Undefined && xs != Undefined:
					merged[v][p] = xs
				default:
					merged[v][p] = es
				}
			}
		}
		return merged
	}
	if hasEntry {
		return entry
	}
	if hasExit {
		return exit
	}
	return nil
}

func (c *Checker) checkFunctionExit() {
	reachable := map[cfg.BlockID]bool{}
	for _, id := range c.graph.TopoOrder() {
		reachable[id] = true
	}

	var exitPoints []cfg.BlockID
	seen := map[cfg.BlockID]bool{}
	for id := range c.graph.ReturnBlocks {
		if reachable[id] && !seen[id] {
			exitPoints = append(exitPoints, id)
			seen[id] = true
		}
	}
	for id := range reachable {
		if len(c.successors(id)) == 0 && !seen[id] {
			exitPoints = append(exitPoints, id)
			seen[id] = true
		}
	}
	if len(exitPoints) == 0 {
		return
	}

	type exitSnap struct {
		id   cfg.BlockID
		snap Snapshot
	}
	var withSnap []exitSnap
	for _, id := range exitPoints {
		if s := c.effectiveExitSnapshot(id); s != nil {
			withSnap = append(withSnap, exitSnap{id: id, snap: s})
		}
	}
	if len(withSnap) == 0 {
		return
	}

	for _, es := range withSnap {
		var unconsumed []string
		for v, paths := range es.snap {
			for p, st := range paths {
				if st == Active {
					unconsumed = append(unconsumed, pathStr(v, p))
				}
			}
		}
		if len(unconsumed) > 0 {
			sort.Strings(unconsumed)
			c.errors = append(c.errors, Error{
				Kind:    UnconsumedAtExit,
				BlockID: es.id,
				Message: fmt.Sprintf("linear tokens not consumed at function exit (block %d): %v", es.id, unconsumed),
			})
		}
	}

	if len(withSnap) > 1 {
		first := withSnap[0]
		for _, es := range withSnap[1:] {
			if !Compatible(first.snap, es.snap) {
				diffs := findDiffs(first.snap, es.snap)
				c.errors = append(c.errors, Error{
					Kind:    ExitInconsistent,
					BlockID: es.id,
					Message: fmt.Sprintf("inconsistent linear states at function exit points (blocks %d vs %d)", first.id, es.id),
					Diffs:   diffs,
				})
			}
		}
	}
}
