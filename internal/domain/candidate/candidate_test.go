package candidate

import (
	"testing"

	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

func TestNew_ClonesValues(t *testing.T) {
	values := map[string]param.Value{"lr": param.Float(0.1)}
	c := New(0, values)

	values["lr"] = param.Float(0.9)
	got, _ := c.Value("lr")
	if got.Float() != 0.1 {
		t.Errorf("mutation of the input map leaked in: lr = %v", got.Float())
	}

	out := c.Values()
	out["lr"] = param.Float(0.5)
	got, _ = c.Value("lr")
	if got.Float() != 0.1 {
		t.Errorf("mutation of the returned map leaked in: lr = %v", got.Float())
	}
}

func TestValue_Missing(t *testing.T) {
	c := New(0, map[string]param.Value{"lr": param.Float(0.1)})
	if _, ok := c.Value("momentum"); ok {
		t.Error("Value(momentum) should not exist")
	}
}

func TestFingerprint_SortedAndStable(t *testing.T) {
	c := New(3, map[string]param.Value{
		"optimizer": param.String("adam"),
		"layers":    param.Int(4),
		"lr":        param.Float(0.01),
	})

	want := "layers=4,lr=0.01,optimizer=adam"
	if fp := c.Fingerprint(); fp != want {
		t.Errorf("Fingerprint() = %q, want %q", fp, want)
	}
}

func TestFingerprint_IgnoresOrdinal(t *testing.T) {
	values := map[string]param.Value{"lr": param.Float(0.1)}
	a := New(1, values)
	b := New(9, values)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal assignments should share a fingerprint")
	}
}

func TestFingerprint_DistinguishesAssignments(t *testing.T) {
	a := New(0, map[string]param.Value{"lr": param.Float(0.1)})
	b := New(0, map[string]param.Value{"lr": param.Float(0.2)})
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different assignments should not share a fingerprint")
	}
}

func TestNames(t *testing.T) {
	c := New(0, map[string]param.Value{
		"b": param.Int(1),
		"a": param.Int(2),
		"c": param.Int(3),
	})
	names := c.Names()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("Names() = %v, want [a b c]", names)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}
