package stats

import "testing"

func TestIncrCounterAccumulates(t *testing.T) {
	c := NewCollector()
	c.IncrCounter("stf.preimages", 1, map[string]string{"service": "42"})
	c.IncrCounter("stf.preimages", 1, map[string]string{"service": "42"})
	c.IncrCounter("stf.preimages", 1, map[string]string{"service": "7"})

	if got := c.Counter("stf.preimages", map[string]string{"service": "42"}); got != 2 {
		t.Fatalf("service 42 counter = %v, want 2", got)
	}
	if got := c.Counter("stf.preimages", map[string]string{"service": "7"}); got != 1 {
		t.Fatalf("service 7 counter = %v, want 1", got)
	}
}

func TestRecordGaugeOverwrites(t *testing.T) {
	c := NewCollector()
	c.RecordGauge("stf.block.gas_used", 100, nil)
	c.RecordGauge("stf.block.gas_used", 250, nil)

	if got := c.Gauge("stf.block.gas_used", nil); got != 250 {
		t.Fatalf("gauge = %v, want 250", got)
	}
}

func TestSnapshotAndReset(t *testing.T) {
	c := NewCollector()
	c.IncrCounter("a", 1, nil)
	c.RecordGauge("b", 2, nil)

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}

	c.Reset()
	if len(c.Snapshot()) != 0 {
		t.Fatalf("expected empty snapshot after Reset")
	}
}
