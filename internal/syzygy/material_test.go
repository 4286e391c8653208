package syzygy

import (
	"reflect"
	"testing"

	"github.com/hailam/endgame/internal/board"
)

func TestCalcKey(t *testing.T) {
	cases := []struct {
		fen      string
		key      string
		mirrored string
	}{
		{"8/8/4K3/2n5/8/3k4/8/8 w - - 0 1", "KvKN", "KNvK"},
		{"8/8/1p2K3/8/8/3k4/8/8 b - - 0 1", "KvKP", "KPvK"},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "KRvK", "KvKR"},
		{"8/8/8/8/2pP4/2K5/4k3/8 b - d3 0 1", "KPvKP", "KPvKP"},
		{"4k3/8/8/8/8/8/8/QR2K3 b - - 0 1", "KQRvK", "KvKQR"},
	}
	for _, c := range cases {
		pos, err := board.ParseFEN(c.fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", c.fen, err)
		}
		if got := CalcKey(pos, false); got != c.key {
			t.Errorf("CalcKey(%q) = %q, want %q", c.fen, got, c.key)
		}
		if got := CalcKey(pos, true); got != c.mirrored {
			t.Errorf("CalcKey(%q, mirror) = %q, want %q", c.fen, got, c.mirrored)
		}
	}
}

func TestNormalizeTablename(t *testing.T) {
	cases := []struct {
		name   string
		mirror bool
		want   string
	}{
		{"KvKQ", false, "KQvK"},
		{"KQvK", false, "KQvK"},
		{"KQvKR", false, "KQvKR"},
		{"KRvKQ", false, "KQvKR"},
		{"KvKN", true, "KvKN"},
		{"KNvK", true, "KvKN"},
		{"KPvKP", false, "KPvKP"},
		{"KNPvKQ", false, "KNPvKQ"},
		{"KRKv", false, "KRKv"}, // not a material key, returned as-is
	}
	for _, c := range cases {
		if got := NormalizeTablename(c.name, c.mirror); got != c.want {
			t.Errorf("NormalizeTablename(%q, %v) = %q, want %q", c.name, c.mirror, got, c.want)
		}
	}
}

func TestIsTablename(t *testing.T) {
	valid := []string{"KQvK", "KQvKR", "KNNvK", "KPvKP", "KQRvK"}
	for _, n := range valid {
		if !IsTablename(n) {
			t.Errorf("IsTablename(%q) = false, want true", n)
		}
	}
	invalid := []string{"", "KvK", "QvK", "KvKQ", "KXvK", "KQRBNPvK", "KQK"}
	for _, n := range invalid {
		if IsTablename(n) {
			t.Errorf("IsTablename(%q) = true, want false", n)
		}
	}
}

func TestDependencies(t *testing.T) {
	cases := []struct {
		name string
		want []string
	}{
		{"KRvK", nil},
		{"KPvK", []string{"KBvK", "KNvK", "KQvK", "KRvK"}},
		{"KQvKR", []string{"KQvK", "KRvK"}},
		{"KNNvK", []string{"KNvK"}},
	}
	for _, c := range cases {
		got := Dependencies(c.name)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Dependencies(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTablenames(t *testing.T) {
	three := Tablenames(3)
	want := []string{"KBvK", "KNvK", "KPvK", "KQvK", "KRvK"}
	if !reflect.DeepEqual(three, want) {
		t.Fatalf("Tablenames(3) = %v, want %v", three, want)
	}

	four := Tablenames(4)
	if len(four) != 35 {
		t.Errorf("Tablenames(4) yields %d names, want 35", len(four))
	}
	seen := make(map[string]bool)
	for _, n := range four {
		if !IsTablename(n) {
			t.Errorf("Tablenames(4) produced invalid name %q", n)
		}
		if seen[n] {
			t.Errorf("Tablenames(4) produced duplicate %q", n)
		}
		seen[n] = true
	}
	five := Tablenames(5)
	if len(five) != 145 {
		t.Errorf("Tablenames(5) yields %d names, want 145", len(five))
	}
}
