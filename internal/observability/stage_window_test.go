package observability

import "testing"

func TestStageWindowSnapshot(t *testing.T) {
	w := newStageWindow(8)
	w.Observe("tick", 10)
	w.Observe("tick", 30)
	w.Observe("tick", 50)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "tick" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "tick")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 50 {
		t.Fatalf("LastMS = %.2f, want 50", s.LastMS)
	}
	if s.P50MS != 30 {
		t.Fatalf("P50MS = %.2f, want 30", s.P50MS)
	}
	if s.P95MS <= 30 || s.P95MS > 50 {
		t.Fatalf("P95MS = %.2f, want (30,50]", s.P95MS)
	}
	if s.TargetP95MS != 150 {
		t.Fatalf("TargetP95MS = %.2f, want 150", s.TargetP95MS)
	}
}

func TestStageWindowWrapsOldSamples(t *testing.T) {
	w := newStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("classify", float64(i))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", s.Samples)
	}
	if s.LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", s.LastMS)
	}
	if s.AvgMS != 7.5 {
		t.Fatalf("AvgMS = %.2f, want 7.5", s.AvgMS)
	}
}

func TestStageWindowIgnoresInvalidObservations(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("", 10)
	w.Observe("tick", -1)

	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d, want 0", len(snap.Stages))
	}
}
