package param

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestNewChoice_Valid(t *testing.T) {
	p, err := NewChoice("optimizer", []Value{String("sgd"), String("adam")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "optimizer" {
		t.Errorf("Name() = %q, want optimizer", p.Name())
	}
	if p.Kind() != Choice {
		t.Errorf("Kind() = %q, want choice", p.Kind())
	}
	if n, ok := p.GridSize(); !ok || n != 2 {
		t.Errorf("GridSize() = %d, %v, want 2, true", n, ok)
	}
}

func TestNewChoice_SingleValueConstant(t *testing.T) {
	p, err := NewChoice("batch", []Value{Int(32)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := p.GridSize(); n != 1 {
		t.Errorf("GridSize() = %d, want 1", n)
	}
	if got := p.ValueAt(0); !got.Equal(Int(32)) {
		t.Errorf("ValueAt(0) = %v, want 32", got)
	}
}

func TestNewChoice_Empty(t *testing.T) {
	_, err := NewChoice("x", nil)
	if err == nil {
		t.Fatal("expected error for empty choice list")
	}
	if !strings.Contains(err.Error(), "at least one value") {
		t.Errorf("error = %q, want 'at least one value'", err)
	}
}

func TestNewChoice_MixedKinds(t *testing.T) {
	_, err := NewChoice("x", []Value{String("a"), Int(1)})
	if err == nil {
		t.Fatal("expected error for mixed value kinds")
	}
	if !strings.Contains(err.Error(), "mixed value kinds") {
		t.Errorf("error = %q, want 'mixed value kinds'", err)
	}
}

func TestNewUniform_InvalidBounds(t *testing.T) {
	if _, err := NewUniform("lr", 0.1, 0.01); err == nil {
		t.Error("expected error for min > max")
	}
	if _, err := NewUniform("lr", math.NaN(), 1); err == nil {
		t.Error("expected error for NaN bound")
	}
	if _, err := NewUniform("lr", 0, math.Inf(1)); err == nil {
		t.Error("expected error for infinite bound")
	}
}

func TestNewUniform_EqualBoundsConstant(t *testing.T) {
	p, err := NewUniform("dropout", 0.5, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	if got := p.Sample(rng).Float(); got != 0.5 {
		t.Errorf("Sample() = %g, want 0.5", got)
	}
}

func TestNewLogUniform_RequiresPositiveMin(t *testing.T) {
	_, err := NewLogUniform("lr", 0, 0.1)
	if err == nil {
		t.Fatal("expected error for min <= 0")
	}
	if !strings.Contains(err.Error(), "min > 0") {
		t.Errorf("error = %q, want 'min > 0'", err)
	}
}

func TestNewInt_Validation(t *testing.T) {
	if _, err := NewInt("layers", 4, 1, 1); err == nil {
		t.Error("expected error for low > high")
	}
	if _, err := NewInt("layers", 1, 4, 0); err == nil {
		t.Error("expected error for step < 1")
	}
}

func TestName_Validation(t *testing.T) {
	if _, err := NewUniform("", 0, 1); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewUniform(strings.Repeat("x", 65), 0, 1); err == nil {
		t.Error("expected error for name too long")
	}
	if _, err := NewUniform("bad name", 0, 1); err == nil {
		t.Error("expected error for name with space")
	}
	for _, name := range []string{"id", "study", "score", "status"} {
		if _, err := NewUniform(name, 0, 1); err == nil {
			t.Errorf("expected error for reserved name %q", name)
		}
	}
}

func TestIntRange_Grid(t *testing.T) {
	p, err := NewInt("units", 16, 64, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := p.GridSize()
	if !ok || n != 4 {
		t.Fatalf("GridSize() = %d, %v, want 4, true", n, ok)
	}
	want := []int64{16, 32, 48, 64}
	for i, w := range want {
		if got := p.ValueAt(uint64(i)).Int(); got != w {
			t.Errorf("ValueAt(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestContinuous_NotEnumerable(t *testing.T) {
	p, _ := NewUniform("lr", 0.001, 0.1)
	if p.Enumerable() {
		t.Error("uniform parameter must not be enumerable")
	}
	if _, ok := p.GridSize(); ok {
		t.Error("GridSize() must report not enumerable")
	}
}

func TestSample_WithinDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	uni, _ := NewUniform("u", 2, 5)
	logu, _ := NewLogUniform("l", 1e-4, 1e-1)
	intr, _ := NewInt("i", 10, 50, 10)
	choice, _ := NewChoice("c", []Value{String("a"), String("b")})

	for i := 0; i < 200; i++ {
		if v := uni.Sample(rng).Float(); v < 2 || v > 5 {
			t.Fatalf("uniform sample %g out of [2,5]", v)
		}
		if v := logu.Sample(rng).Float(); v < 1e-4 || v > 1e-1 {
			t.Fatalf("log_uniform sample %g out of [1e-4,1e-1]", v)
		}
		if v := intr.Sample(rng).Int(); v < 10 || v > 50 || v%10 != 0 {
			t.Fatalf("int sample %d out of domain", v)
		}
		if v := choice.Sample(rng).String(); v != "a" && v != "b" {
			t.Fatalf("choice sample %q out of domain", v)
		}
	}
}

func TestValue_ParseRoundTrip(t *testing.T) {
	values := []Value{String("adam"), Float(0.125), Int(-42), Bool(true)}
	for _, v := range values {
		got, err := Parse(v.Kind(), v.String())
		if err != nil {
			t.Errorf("Parse(%q, %q) unexpected error: %v", v.Kind(), v.String(), err)
			continue
		}
		if !got.Equal(v) {
			t.Errorf("Parse round trip = %v, want %v", got, v)
		}
	}
}

func TestValue_NumericWidening(t *testing.T) {
	if got := Int(7).Float(); got != 7.0 {
		t.Errorf("Int(7).Float() = %g, want 7", got)
	}
	if got := Float(3.9).Int(); got != 3 {
		t.Errorf("Float(3.9).Int() = %d, want 3", got)
	}
	if String("x").Bool() {
		t.Error("String value must not read as bool true")
	}
}

func TestValue_UnmarshalJSON_SniffsKind(t *testing.T) {
	cases := []struct {
		raw  string
		want Value
	}{
		{`"adam"`, String("adam")},
		{`0.05`, Float(0.05)},
		{`1e-3`, Float(0.001)},
		{`42`, Int(42)},
		{`-7`, Int(-7)},
		{`true`, Bool(true)},
		{`false`, Bool(false)},
	}
	for _, tc := range cases {
		var got Value
		if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
			t.Errorf("Unmarshal(%s) unexpected error: %v", tc.raw, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("Unmarshal(%s) = %v (kind %s), want %v (kind %s)",
				tc.raw, got, got.Kind(), tc.want, tc.want.Kind())
		}
	}
}

func TestValue_UnmarshalJSON_RejectsNonScalars(t *testing.T) {
	for _, raw := range []string{`{}`, `[1]`, `null`, ``} {
		var v Value
		if err := v.UnmarshalJSON([]byte(raw)); err == nil {
			t.Errorf("UnmarshalJSON(%s) expected an error", raw)
		}
	}
}

func TestReconstruct_SkipsValidation(t *testing.T) {
	p := Reconstruct("score", Choice, []Value{Int(1)}, 0, 0, 0, 0, 0)
	if p.Name() != "score" {
		t.Errorf("Name() = %q, want score", p.Name())
	}
	if p.Kind() != Choice {
		t.Errorf("Kind() = %q, want choice", p.Kind())
	}
}
