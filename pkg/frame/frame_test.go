package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// encodeTestImage renders a width x height PNG where brightCol (in grid
// columns) is white and everything else is black.
func encodeTestImage(t *testing.T, width, height, brightCol int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	colWidth := width / 8
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{A: 255}
			if x/colWidth == brightCol {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeBrightestCol(t *testing.T) {
	for _, col := range []int{0, 3, 7} {
		data := encodeTestImage(t, 64, 32, col)
		a, err := Analyze(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.BrightestCol != col {
			t.Errorf("BrightestCol = %d, want %d", a.BrightestCol, col)
		}
	}
}

func TestAnalyzeMetadata(t *testing.T) {
	data := encodeTestImage(t, 64, 32, 0)
	a, err := Analyze(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Width != 64 || a.Height != 32 {
		t.Errorf("dimensions = %dx%d, want 64x32", a.Width, a.Height)
	}
	if a.Format != "png" {
		t.Errorf("Format = %q, want png", a.Format)
	}
	if a.Bytes != len(data) {
		t.Errorf("Bytes = %d, want %d", a.Bytes, len(data))
	}
	if a.Columns() != 8 {
		t.Errorf("Columns() = %d, want 8", a.Columns())
	}
}

func TestAnalyzeGridLuminance(t *testing.T) {
	data := encodeTestImage(t, 64, 32, 2)
	a, err := Analyze(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for row := 0; row < 4; row++ {
		if a.Grid[row][2] < 0.9 {
			t.Errorf("bright cell [%d][2] = %v, want near 1", row, a.Grid[row][2])
		}
		if a.Grid[row][5] > 0.1 {
			t.Errorf("dark cell [%d][5] = %v, want near 0", row, a.Grid[row][5])
		}
	}
}

func TestAnalyzeGarbage(t *testing.T) {
	if _, err := Analyze([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSaveLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames", "latest.png")
	data := encodeTestImage(t, 16, 16, 1)

	if err := SaveLatest(path, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved frame: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("saved frame differs from input")
	}

	// overwrite replaces, no tmp file left behind
	second := encodeTestImage(t, 16, 16, 2)
	if err := SaveLatest(path, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = os.ReadFile(path)
	if !bytes.Equal(got, second) {
		t.Error("overwrite did not replace frame")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("tmp file left behind")
	}
}
