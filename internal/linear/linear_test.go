package linear

import (
	"testing"

	"github.com/pythoc-lang/pythoc/internal/cfg"
)

func active(name string) Snapshot {
	return Snapshot{name: {"": Active}}
}

func consumed(name string) Snapshot {
	return Snapshot{name: {"": Consumed}}
}

func TestCompatibleIgnoresStateIdentityOnlyActiveness(t *testing.T) {
	if !Compatible(active("t"), active("t")) {
		t.Error("two active snapshots should be compatible")
	}
	if !Compatible(consumed("t"), consumed("t")) {
		t.Error("two consumed (non-active) snapshots should be compatible")
	}
	if Compatible(active("t"), consumed("t")) {
		t.Error("active vs consumed should be incompatible")
	}
}

func TestUnconsumedAtExitDetected(t *testing.T) {
	g := cfg.New("f")
	g.ReturnBlocks[g.EntryID] = true
	g.Terminate(g.EntryID, cfg.LinearSnapshot{"t": {"": "active"}})

	c := NewChecker(g)
	errs := c.Check(active("t"))

	found := false
	for _, e := range errs {
		if e.Kind == UnconsumedAtExit {
			found = true
		}
	}
	if !found {
		t.Errorf("expected UnconsumedAtExit, got %v", errs)
	}
}

func TestConsumedAtExitIsClean(t *testing.T) {
	g := cfg.New("f")
	g.ReturnBlocks[g.EntryID] = true
	g.Terminate(g.EntryID, cfg.LinearSnapshot{"t": {"": "consumed"}})

	c := NewChecker(g)
	errs := c.Check(active("t"))

	for _, e := range errs {
		if e.Kind == UnconsumedAtExit {
			t.Errorf("did not expect UnconsumedAtExit, got %v", errs)
		}
	}
}

func TestMergeInconsistentDetected(t *testing.T) {
	g := cfg.New("f")
	thenBlk := g.NewBlock()
	elseBlk := g.NewBlock()
	join := g.NewBlock()

	g.AddEdge(g.EntryID, thenBlk, cfg.BranchTrue, nil)
	g.AddEdge(g.EntryID, elseBlk, cfg.BranchFalse, nil)
	g.AddEdge(thenBlk, join, cfg.Sequential, nil)
	g.AddEdge(elseBlk, join, cfg.Sequential, nil)
	g.ReturnBlocks[join] = true

	g.Terminate(g.EntryID, cfg.LinearSnapshot{"t": {"": "active"}})
	g.Terminate(thenBlk, cfg.LinearSnapshot{"t": {"": "consumed"}})
	g.Terminate(elseBlk, cfg.LinearSnapshot{"t": {"": "active"}})
	g.Terminate(join, cfg.LinearSnapshot{"t": {"": "consumed"}})

	c := NewChecker(g)
	errs := c.Check(active("t"))

	found := false
	for _, e := range errs {
		if e.Kind == MergeInconsistent {
			found = true
		}
	}
	if !found {
		t.Errorf("expected MergeInconsistent, got %v", errs)
	}
}

func TestLoopInvariantViolationDetected(t *testing.T) {
	g := cfg.New("f")
	header := g.NewBlock()
	body := g.NewBlock()
	after := g.NewBlock()

	g.AddEdge(g.EntryID, header, cfg.Sequential, nil)
	g.AddEdge(header, body, cfg.BranchTrue, nil)
	g.AddEdge(header, after, cfg.BranchFalse, nil)
	g.AddEdge(body, header, cfg.LoopBack, nil)
	g.ReturnBlocks[after] = true

	g.Terminate(g.EntryID, cfg.LinearSnapshot{"t": {"": "active"}})
	g.Terminate(header, cfg.LinearSnapshot{"t": {"": "active"}})
	// Loop body consumes the token — header would see it vanish on the
	// next iteration, violating the loop invariant.
	g.Terminate(body, cfg.LinearSnapshot{"t": {"": "consumed"}})
	g.Terminate(after, cfg.LinearSnapshot{"t": {"": "active"}})

	c := NewChecker(g)
	errs := c.Check(active("t"))

	found := false
	for _, e := range errs {
		if e.Kind == LoopInvariantViolated {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LoopInvariantViolated, got %v", errs)
	}
}

func TestEffectiveExitSnapshotNeverResurrectsConsumed(t *testing.T) {
	c := &Checker{
		entrySnapshots: map[cfg.BlockID]Snapshot{0: consumed("t")},
		exitSnapshots:  map[cfg.BlockID]Snapshot{0: active("t")},
	}
	got := c.effectiveExitSnapshot(0)
	if got["t"][""] != Consumed {
		t.Errorf("effectiveExitSnapshot = %v, want consumed (entry-consumed must win)", got)
	}
}

func TestEffectiveExitSnapshotPropagatesFromExitWhenEntryUndefined(t *testing.T) {
	c := &Checker{
		entrySnapshots: map[cfg.BlockID]Snapshot{0: {}},
		exitSnapshots:  map[cfg.BlockID]Snapshot{0: active("t")},
	}
	got := c.effectiveExitSnapshot(0)
	if got["t"][""] != Active {
		t.Errorf("effectiveExitSnapshot = %v, want active (undefined entry defers to exit)", got)
	}
}
