package guard

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/gate/gatetest"
)

func TestCallSite(t *testing.T) {
	g := newGuard(gatetest.RejectEveryNth(2))
	res := gate.MustResource("sentinel_cloud", gate.Inbound)

	cs, err := NewCallSite(g, res, func(context.Context, *gate.BlockError) (string, error) {
		return "busy", nil
	})
	if err != nil {
		t.Fatalf("NewCallSite() unexpected error: %v", err)
	}
	if cs.Resource() != res {
		t.Errorf("Resource() = %v, want %v", cs.Resource(), res)
	}

	hello := func(context.Context) (string, error) { return "Hello Sentinel", nil }

	first, _ := cs.Call(context.Background(), hello)
	second, _ := cs.Call(context.Background(), hello)

	if first != "Hello Sentinel" {
		t.Errorf("first call = %q, want %q", first, "Hello Sentinel")
	}
	if second != "busy" {
		t.Errorf("second call = %q, want %q", second, "busy")
	}
	assertCounts(t, g.Counters(), 2, 1, 1)
}

func TestNewCallSite_InvalidResource(t *testing.T) {
	g := newGuard(nil)
	_, err := NewCallSite[int](g, gate.Resource{}, nil)
	if !errors.Is(err, gate.ErrInvalidResource) {
		t.Errorf("NewCallSite() error = %v, want ErrInvalidResource", err)
	}
}

func TestCounters_SnapshotSub(t *testing.T) {
	c := NewCounters()
	c.total.Add(10)
	c.pass.Add(7)
	c.block.Add(3)
	prev := c.Snapshot()

	c.total.Add(5)
	c.pass.Add(1)
	c.block.Add(4)

	diff := c.Snapshot().Sub(prev)
	want := Snapshot{Total: 5, Pass: 1, Block: 4}
	if diff != want {
		t.Errorf("Sub() = %+v, want %+v", diff, want)
	}
	if diff.String() != "total:5, pass:1, block:4" {
		t.Errorf("String() = %q", diff.String())
	}
}
