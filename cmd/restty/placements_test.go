package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tonksthebear/restty/internal/kitty"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestPlanBatch(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "big.png"), 100, 100)

	batch := placementBatch{
		Cell: batchCell{Width: 10, Height: 20},
		Images: []batchImage{
			{ID: 1, Format: kitty.FormatPNG, File: "big.png"},
			{ID: 2, Format: kitty.FormatRGB, Width: 30, Height: 30, Data: base64.StdEncoding.EncodeToString(make([]byte, 30*30*3))},
		},
		Placements: []kitty.Placement{
			{ImageID: 1, X: 1, Y: 1, SourceWidth: 20, SourceHeight: 20, PixelWidth: 40, PixelHeight: 40, Z: -1},
			{ImageID: 2, X: 2, Y: 3, PixelWidth: 30, PixelHeight: 30},
			{ImageID: 1, X: 9, Y: 5, SourceX: 40, SourceY: 40, SourceWidth: 20, SourceHeight: 20, PixelWidth: 40, PixelHeight: 40, Z: -1},
		},
	}

	report, err := planBatch(context.Background(), batch, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Plans) != 2 {
		t.Fatalf("plans = %+v", report.Plans)
	}

	est := report.Plans[0]
	if est.ImageID != 1 || est.Kind != "estimated" || est.ImageWidth != 100 || est.Rect == nil {
		t.Fatalf("first plan = %+v", est)
	}
	if r := est.Rect; !near(r.X, 10) || !near(r.Y, 20) || !near(r.W, 200) || !near(r.H, 200) {
		t.Errorf("rect = %+v", *r)
	}

	direct := report.Plans[1]
	if direct.Kind != "none" || len(direct.Slices) != 1 {
		t.Fatalf("second plan = %+v", direct)
	}
	s := direct.Slices[0]
	if s.Dest.X != 20 || s.Dest.Y != 60 || s.Dest.W != 30 {
		t.Errorf("slice = %+v", s)
	}
	if s.Cells != [4]int{2, 3, 3, 2} {
		t.Errorf("cells = %v", s.Cells)
	}
}

func TestPlanBatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		batch placementBatch
		want  string
	}{
		{
			"unknown image",
			placementBatch{Placements: []kitty.Placement{{ImageID: 7}}},
			"unknown image 7",
		},
		{
			"missing file",
			placementBatch{Images: []batchImage{{ID: 1, Format: kitty.FormatPNG, File: "nope.png"}}},
			"image 1",
		},
		{
			"no source",
			placementBatch{Images: []batchImage{{ID: 3, Format: kitty.FormatPNG}}},
			"no data or file",
		},
		{
			"duplicate image",
			placementBatch{Images: []batchImage{
				{ID: 2, Format: kitty.FormatRGB, Width: 1, Height: 1, Data: "AAAA"},
				{ID: 2, Format: kitty.FormatRGB, Width: 1, Height: 1, Data: "AAAA"},
			}},
			"duplicate image 2",
		},
		{
			"short pixels",
			placementBatch{Images: []batchImage{{ID: 4, Format: kitty.FormatRGBA, Width: 2, Height: 2, Data: "AAAA"}}},
			"image 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planBatch(context.Background(), tt.batch, t.TempDir())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRunPlacements_WritesTOML(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 16, 16)
	batch := `
[cell]
width = 8
height = 16

[[images]]
id = 5
format = 100
file = "a.png"

[[placements]]
image_id = 5
x = 1
y = 1
pixel_width = 16
pixel_height = 16
`
	path := filepath.Join(dir, "frame.toml")
	if err := os.WriteFile(path, []byte(batch), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runPlacements(context.Background(), path, &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"image_id = 5", "none", "slices"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
