package metrics

import "testing"

func TestNew(t *testing.T) {
	m := New(12, 340, 90000)
	if m.Trials() != 12 {
		t.Errorf("Trials() = %d", m.Trials())
	}
	if m.Checkpoints() != 340 {
		t.Errorf("Checkpoints() = %d", m.Checkpoints())
	}
	if m.TrainingMillis() != 90000 {
		t.Errorf("TrainingMillis() = %d", m.TrainingMillis())
	}
}

func TestNew_Zero(t *testing.T) {
	m := New(0, 0, 0)
	if m.Trials() != 0 || m.Checkpoints() != 0 || m.TrainingMillis() != 0 {
		t.Error("zero metrics should have zero values")
	}
}
