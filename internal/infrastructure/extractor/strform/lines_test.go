package strform

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: float64(len(s)) * 5, FontSize: 10}
}

func TestBuildLinesGroupsByBaseline(t *testing.T) {
	lines := buildLines([]pdf.Text{
		run("Nama", 10, 700),
		run(":", 40, 700.5),
		run("ALI", 50, 699.8),
		run("Umur", 10, 680),
		run("51", 60, 680),
	})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].text != "Nama : ALI" {
		t.Fatalf("line 0 = %q", lines[0].text)
	}
	if lines[1].text != "Umur 51" {
		t.Fatalf("line 1 = %q", lines[1].text)
	}
}

func TestBuildLinesMergesAdjacentRuns(t *testing.T) {
	// Per-glyph runs with no horizontal gap form a single word.
	lines := buildLines([]pdf.Text{
		{S: "A", X: 10, Y: 700, W: 5, FontSize: 10},
		{S: "L", X: 15, Y: 700, W: 5, FontSize: 10},
		{S: "I", X: 20, Y: 700, W: 5, FontSize: 10},
		{S: "BIN", X: 40, Y: 700, W: 15, FontSize: 10},
	})

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if len(lines[0].words) != 2 {
		t.Fatalf("expected 2 words, got %d (%q)", len(lines[0].words), lines[0].text)
	}
	if lines[0].text != "ALI BIN" {
		t.Fatalf("text = %q", lines[0].text)
	}
}

func TestBuildLinesOrdersTopFirst(t *testing.T) {
	lines := buildLines([]pdf.Text{
		run("bottom", 10, 100),
		run("top", 10, 700),
		run("middle", 10, 400),
	})
	if len(lines) != 3 || lines[0].text != "top" || lines[2].text != "bottom" {
		t.Fatalf("unexpected ordering: %+v", lines)
	}
}

func TestBuildLinesSkipsBlankRuns(t *testing.T) {
	if got := buildLines([]pdf.Text{run("  ", 10, 700)}); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestFindSection(t *testing.T) {
	lines := buildLines([]pdf.Text{
		run("BANTUAN", 10, 720),
		run("MAKLUMAT PEMOHON", 10, 700),
		run("MAKLUMAT PASANGAN", 10, 600),
	})

	if idx, ok := findSection(lines, []string{"MAKLUMAT", "PEMOHON"}, 0); !ok || idx != 1 {
		t.Fatalf("pemohon anchor = (%d, %v)", idx, ok)
	}
	if idx, ok := findSection(lines, []string{"MAKLUMAT", "PASANGAN"}, 0); !ok || idx != 2 {
		t.Fatalf("pasangan anchor = (%d, %v)", idx, ok)
	}
	if _, ok := findSection(lines, []string{"MAKLUMAT", "WARIS"}, 0); ok {
		t.Fatalf("waris anchor should be absent")
	}
}
