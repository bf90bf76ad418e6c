package frame

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"
)

const (
	gridRows = 4
	gridCols = 8
)

// Analysis is the digest of one screen frame that brains work from. The raw
// pixels never leave this package.
type Analysis struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
	Format string `json:"format"`

	// Grid holds mean luminance per cell, gridRows x gridCols, values 0..1.
	Grid [gridRows][gridCols]float64 `json:"grid"`

	// BrightestCol is the column index with the highest summed luminance.
	BrightestCol int `json:"brightest_col"`
}

// Analyze decodes a PNG or JPEG frame and reduces it to a luminance grid.
func Analyze(data []byte) (*Analysis, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty frame %dx%d", w, h)
	}

	a := &Analysis{
		Width:  w,
		Height: h,
		Bytes:  len(data),
		Format: format,
	}

	var counts [gridRows][gridCols]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := (y - bounds.Min.Y) * gridRows / h
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			col := (x - bounds.Min.X) * gridCols / w
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, RGBA returns 16-bit channels
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			a.Grid[row][col] += luma
			counts[row][col]++
		}
	}

	colSums := make([]float64, gridCols)
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			if counts[row][col] > 0 {
				a.Grid[row][col] /= float64(counts[row][col])
			}
			colSums[col] += a.Grid[row][col]
		}
	}

	for col := 1; col < gridCols; col++ {
		if colSums[col] > colSums[a.BrightestCol] {
			a.BrightestCol = col
		}
	}

	return a, nil
}

// Columns returns the number of grid columns, so brains don't hardcode it.
func (a *Analysis) Columns() int {
	return gridCols
}

// SaveLatest writes the raw frame bytes for offline inspection, replacing
// the previous one atomically.
func SaveLatest(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
