package cfg

import "testing"

func TestNewBlockAllocatesEntry(t *testing.T) {
	g := New("main")
	if _, ok := g.Blocks[g.EntryID]; !ok {
		t.Fatal("expected entry block to be allocated")
	}
	if len(g.Blocks) != 1 {
		t.Errorf("len(Blocks) = %d, want 1", len(g.Blocks))
	}
}

func TestTerminateRecordsExitSnapshot(t *testing.T) {
	g := New("f")
	snap := LinearSnapshot{"t": {PathKey(nil): "active"}}
	if !g.Terminate(g.EntryID, snap) {
		t.Fatal("expected first Terminate to succeed")
	}
	if g.Terminate(g.EntryID, snap) {
		t.Fatal("expected second Terminate on the same block to fail")
	}
	got, ok := g.ExitSnapshots[g.EntryID]
	if !ok || got["t"][PathKey(nil)] != "active" {
		t.Errorf("exit snapshot not recorded correctly: %v", got)
	}
}

func TestTopoOrderLinearChain(t *testing.T) {
	g := New("f")
	b1 := g.NewBlock()
	b2 := g.NewBlock()
	g.AddEdge(g.EntryID, b1, Sequential, nil)
	g.AddEdge(b1, b2, Sequential, nil)

	order := g.TopoOrder()
	pos := map[BlockID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[g.EntryID] > pos[b1] || pos[b1] > pos[b2] {
		t.Errorf("expected entry < b1 < b2 in topo order, got %v", order)
	}
}

func TestTopoOrderExcludesLoopBackAndUnreachable(t *testing.T) {
	g := New("f")
	header := g.NewBlock()
	body := g.NewBlock()
	afterUnreachable := g.NewBlock()

	g.AddEdge(g.EntryID, header, Sequential, nil)
	g.AddEdge(header, body, Sequential, nil)
	g.AddEdge(body, header, LoopBack, nil) // back-edge must not create a cycle dependency
	g.AddEdge(header, afterUnreachable, Unreachable, nil)

	order := g.TopoOrder()
	for _, id := range order {
		if id == afterUnreachable {
			t.Error("unreachable-only block should be excluded from topo order")
		}
	}
	seen := map[BlockID]bool{}
	for _, id := range order {
		if seen[id] {
			t.Fatalf("block %d visited twice", id)
		}
		seen[id] = true
	}
}

func TestPredecessorsExcludesUnreachable(t *testing.T) {
	g := New("f")
	b1 := g.NewBlock()
	b2 := g.NewBlock()
	g.AddEdge(g.EntryID, b1, Sequential, nil)
	g.AddEdge(g.EntryID, b2, Unreachable, nil)

	preds := g.Predecessors(b1)
	if len(preds) != 1 || preds[0].Source != g.EntryID {
		t.Errorf("Predecessors(b1) = %v, want one edge from entry", preds)
	}
	if len(g.Predecessors(b2)) != 0 {
		t.Error("unreachable edges should not count as predecessors")
	}
}
