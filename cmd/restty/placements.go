package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Tonksthebear/restty/internal/config"
	"github.com/Tonksthebear/restty/internal/kitty"
)

// placementBatch is a snapshot of the images and placements of one frame.
type placementBatch struct {
	Cell       batchCell         `toml:"cell"`
	Images     []batchImage      `toml:"images"`
	Placements []kitty.Placement `toml:"placements"`
}

type batchCell struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// batchImage is the pixel data behind an image id. Data is base64 and takes
// precedence over File, which is relative to the batch file.
type batchImage struct {
	ID     uint32       `toml:"id"`
	Format kitty.Format `toml:"format"`
	Width  int          `toml:"width"`
	Height int          `toml:"height"`
	File   string       `toml:"file"`
	Data   string       `toml:"data"`
}

type planReport struct {
	Plans []planEntry `toml:"plans"`
}

type planEntry struct {
	ImageID     uint32       `toml:"image_id"`
	Kind        string       `toml:"kind"`
	ImageWidth  int          `toml:"image_width"`
	ImageHeight int          `toml:"image_height"`
	Rect        *rectEntry   `toml:"rect,omitempty"`
	Slices      []sliceEntry `toml:"slices,omitempty"`
}

type rectEntry struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	W float64 `toml:"w"`
	H float64 `toml:"h"`
}

type sliceEntry struct {
	Source rectEntry `toml:"source"`
	Dest   rectEntry `toml:"dest"`
	// Cells covered by the placement: x, y, width, height.
	Cells [4]int `toml:"cells"`
}

func runPlacements(ctx context.Context, path string, out io.Writer) error {
	// #nosec G304 - reading the user's batch file is intentional
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read batch: %w", err)
	}

	var batch placementBatch
	if err := toml.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("failed to parse batch: %w", err)
	}

	report, err := planBatch(ctx, batch, filepath.Dir(path))
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(out)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write plans: %w", err)
	}
	return nil
}

// planBatch decodes every image to learn its real size, then plans each
// image's placements.
func planBatch(ctx context.Context, batch placementBatch, baseDir string) (planReport, error) {
	cell := kitty.CellSize{Width: batch.Cell.Width, Height: batch.Cell.Height}
	if cell.Width <= 0 || cell.Height <= 0 {
		cell = kitty.CellSize{Width: config.DefaultCellWidth, Height: config.DefaultCellHeight}
	}

	seen := make(map[uint32]bool, len(batch.Images))
	for _, img := range batch.Images {
		if seen[img.ID] {
			return planReport{}, fmt.Errorf("duplicate image %d", img.ID)
		}
		seen[img.ID] = true
	}

	cache := kitty.NewImageCache()
	var mu sync.Mutex
	sizes := make(map[uint32][2]int, len(batch.Images))
	signatures := make(map[uint32]kitty.Signature, len(batch.Images))

	g, gctx := errgroup.WithContext(ctx)
	for _, img := range batch.Images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := img.load(baseDir)
			if err != nil {
				return err
			}
			sig := kitty.Signature{
				ID:      img.ID,
				Format:  img.Format,
				Width:   img.Width,
				Height:  img.Height,
				DataLen: len(data),
			}
			decoded, err := cache.Decode(sig, data)
			if err != nil {
				return fmt.Errorf("image %d: %w", img.ID, err)
			}
			b := decoded.Bounds()

			mu.Lock()
			sizes[img.ID] = [2]int{b.Dx(), b.Dy()}
			signatures[img.ID] = sig
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return planReport{}, err
	}

	placements := make([]kitty.Placement, len(batch.Placements))
	for i, p := range batch.Placements {
		sig, ok := signatures[p.ImageID]
		if !ok {
			return planReport{}, fmt.Errorf("placement %d references unknown image %d", i, p.ImageID)
		}
		// The declared image size comes from the image table.
		p.Format, p.ImageWidth, p.ImageHeight, p.DataLen = sig.Format, sig.Width, sig.Height, sig.DataLen
		placements[i] = p
	}

	var report planReport
	for _, group := range kitty.GroupByImage(placements) {
		size := sizes[group[0].ImageID]
		plan := kitty.PlanImage(group, size[0], size[1], cell)

		entry := planEntry{
			ImageID:     plan.ImageID,
			Kind:        plan.Kind.String(),
			ImageWidth:  size[0],
			ImageHeight: size[1],
		}
		switch plan.Kind {
		case kitty.ReconstructEstimated, kitty.ReconstructContained:
			entry.Rect = &rectEntry{X: plan.Rect.X, Y: plan.Rect.Y, W: plan.Rect.W, H: plan.Rect.H}
		case kitty.ReconstructNone:
			for i, s := range plan.Slices {
				bounds := group[i].CellBounds(cell)
				entry.Slices = append(entry.Slices, sliceEntry{
					Source: rectEntry{X: s.SX, Y: s.SY, W: s.SW, H: s.SH},
					Dest:   rectEntry{X: s.DX, Y: s.DY, W: s.DW, H: s.DH},
					Cells:  [4]int{bounds.Min.X, bounds.Min.Y, bounds.Dx(), bounds.Dy()},
				})
			}
		}
		report.Plans = append(report.Plans, entry)
	}
	return report, nil
}

func (img batchImage) load(baseDir string) ([]byte, error) {
	if img.Data != "" {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("image %d: invalid data: %w", img.ID, err)
		}
		return data, nil
	}
	if img.File == "" {
		return nil, fmt.Errorf("image %d: no data or file", img.ID)
	}
	path := img.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	// #nosec G304 - image paths come from the user's batch file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", img.ID, err)
	}
	return data, nil
}
