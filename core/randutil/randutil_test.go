package randutil

import (
	"regexp"
	"strings"
	"sync"
	"testing"
)

var alphanumeric = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func TestShortUID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := ShortUID()
		if !alphanumeric.MatchString(id) {
			t.Fatalf("ShortUID() = %q, want only alphanumerics", id)
		}
		if len(id) > 22 || len(id) < 16 {
			t.Errorf("len(ShortUID()) = %d, want between 16 and 22", len(id))
		}
		if seen[id] {
			t.Fatalf("ShortUID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestSource_IntnBounds(t *testing.T) {
	src := New(7)
	for i := 0; i < 1000; i++ {
		n := src.Intn(1, 4)
		if n < 1 || n >= 4 {
			t.Fatalf("Intn(1, 4) = %d, want in [1, 4)", n)
		}
	}
}

func TestSource_IntnEmptyRange(t *testing.T) {
	src := New(7)
	if got := src.Intn(3, 3); got != 3 {
		t.Errorf("Intn(3, 3) = %d, want 3", got)
	}
	if got := src.Intn(5, 2); got != 5 {
		t.Errorf("Intn(5, 2) = %d, want 5", got)
	}
}

func TestSource_SeedIsReproducible(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 50; i++ {
		if x, y := a.Intn(0, 1000), b.Intn(0, 1000); x != y {
			t.Fatalf("draw %d: %d != %d for equal seeds", i, x, y)
		}
	}
	if a.Seed() != 42 {
		t.Errorf("Seed() = %d, want 42", a.Seed())
	}
}

func TestSource_ZeroSeedIsRandomized(t *testing.T) {
	src := New(0)
	if src.Seed() == 0 {
		t.Error("Seed() = 0, want a crypto-drawn seed")
	}
}

func TestSource_ConcurrentUse(t *testing.T) {
	src := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = src.Intn(0, 10)
			}
		}()
	}
	wg.Wait()
}

func TestSource_Codename(t *testing.T) {
	name := New(3).Codename()
	parts := strings.Split(name, " ")
	if len(parts) != 2 {
		t.Fatalf("Codename() = %q, want two words", name)
	}
	if parts[0] == "" || parts[1] == "" {
		t.Errorf("Codename() = %q has an empty word", name)
	}
}
