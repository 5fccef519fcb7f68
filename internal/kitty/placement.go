package kitty

import (
	"math"
	"slices"

	uv "github.com/charmbracelet/ultraviolet"
)

// Placement is one image placement as reported by the terminal core.
type Placement struct {
	ImageID     uint32  `toml:"image_id"`
	Format      Format  `toml:"format"`
	ImageWidth  int     `toml:"image_width"`
	ImageHeight int     `toml:"image_height"`
	DataPtr     uintptr `toml:"-"`
	DataLen     int     `toml:"data_len"`

	// Destination cell and rendered size in pixels.
	X           int `toml:"x"`
	Y           int `toml:"y"`
	PixelWidth  int `toml:"pixel_width"`
	PixelHeight int `toml:"pixel_height"`

	SourceX      int `toml:"source_x"`
	SourceY      int `toml:"source_y"`
	SourceWidth  int `toml:"source_width"`
	SourceHeight int `toml:"source_height"`

	CellOffsetX int `toml:"cell_offset_x"`
	CellOffsetY int `toml:"cell_offset_y"`

	// Z is -1 for virtual placements whose source rect may be incomplete.
	Z int32 `toml:"z"`
}

// Virtual reports whether the core marked the placement as virtual.
func (p Placement) Virtual() bool {
	return p.Z == -1
}

// CellSize is the pixel size of one terminal cell.
type CellSize struct {
	Width  float64
	Height float64
}

// CellBounds returns the cells the placement covers.
func (p Placement) CellBounds(cell CellSize) uv.Rectangle {
	cols, rows := 1, 1
	if cell.Width > 0 {
		cols = max(1, int(math.Ceil(float64(p.CellOffsetX+p.PixelWidth)/cell.Width)))
	}
	if cell.Height > 0 {
		rows = max(1, int(math.Ceil(float64(p.CellOffsetY+p.PixelHeight)/cell.Height)))
	}
	return uv.Rect(p.X, p.Y, cols, rows)
}

// Rect is a rectangle in pixel space.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) finite() bool {
	return isFinite(r.X) && isFinite(r.Y) && isFinite(r.W) && isFinite(r.H)
}

// Slice is the draw instruction for one placement: copy the source rect
// (SX, SY, SW, SH) of the decoded image to the destination rect
// (DX, DY, DW, DH). RawSW and RawSH are the source size before the 1px
// guard for empty rects.
type Slice struct {
	SX, SY, SW, SH float64
	RawSW, RawSH   float64
	DX, DY, DW, DH float64
}

// ComputeSlice derives the slice for p against the decoded image size, which
// may differ from the size declared in the placement.
func ComputeSlice(p Placement, imageWidth, imageHeight int, cell CellSize) Slice {
	iw, ih := float64(imageWidth), float64(imageHeight)

	sx := clamp(float64(p.SourceX), 0, iw)
	sy := clamp(float64(p.SourceY), 0, ih)
	rawSW := iw - sx
	if p.SourceWidth > 0 {
		rawSW = min(float64(p.SourceWidth), iw-sx)
	}
	rawSH := ih - sy
	if p.SourceHeight > 0 {
		rawSH = min(float64(p.SourceHeight), ih-sy)
	}

	s := Slice{SX: sx, SY: sy, SW: rawSW, SH: rawSH, RawSW: rawSW, RawSH: rawSH}
	if s.SW <= 0 {
		s.SX = max(0, min(sx, iw-1))
		s.SW = 1
	}
	if s.SH <= 0 {
		s.SY = max(0, min(sy, ih-1))
		s.SH = 1
	}

	s.DX = float64(p.X)*cell.Width + float64(p.CellOffsetX)
	s.DY = float64(p.Y)*cell.Height + float64(p.CellOffsetY)
	s.DW = float64(p.PixelWidth)
	s.DH = float64(p.PixelHeight)
	if s.DW <= 0 {
		s.DW = max(rawSW, 0)
	}
	if s.DH <= 0 {
		s.DH = max(rawSH, 0)
	}
	return s
}

// ReconstructKind says how a group of placements should be drawn.
type ReconstructKind int

const (
	// ReconstructNone means the slices can be drawn as they are.
	ReconstructNone ReconstructKind = iota
	// ReconstructEstimated means the whole image is drawn into a rect
	// recovered from the slices.
	ReconstructEstimated
	// ReconstructContained means the estimate was unusable and the image is
	// fitted into the bounding box of the placements.
	ReconstructContained
	// ReconstructUnavailable means nothing should be drawn this frame.
	ReconstructUnavailable
)

func (k ReconstructKind) String() string {
	switch k {
	case ReconstructNone:
		return "none"
	case ReconstructEstimated:
		return "estimated"
	case ReconstructContained:
		return "contained"
	case ReconstructUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// CoverageThreshold is the source coverage on each axis above which virtual
// placements are drawn slice by slice.
const CoverageThreshold = 0.9

// Reconstruct recovers a single draw rect for an image whose placements only
// cover part of it. placements and samples are parallel. It returns
// ReconstructNone when no placement is virtual or the slices already cover
// the image.
func Reconstruct(placements []Placement, samples []Slice, imageWidth, imageHeight int, cell CellSize) (Rect, ReconstructKind) {
	if len(placements) == 0 || len(placements) != len(samples) {
		return Rect{}, ReconstructNone
	}
	if !slices.ContainsFunc(placements, Placement.Virtual) {
		return Rect{}, ReconstructNone
	}

	iw, ih := float64(imageWidth), float64(imageHeight)
	if iw <= 0 || ih <= 0 {
		return Rect{}, ReconstructUnavailable
	}

	covX, covY := coverage(samples, iw, ih)
	if covX >= CoverageThreshold && covY >= CoverageThreshold {
		return Rect{}, ReconstructNone
	}

	if r, ok := estimate(samples, iw, ih, cell); ok {
		return r, ReconstructEstimated
	}
	if r, ok := contain(samples, iw, ih); ok {
		return r, ReconstructContained
	}
	return Rect{}, ReconstructUnavailable
}

func estimate(samples []Slice, iw, ih float64, cell CellSize) (Rect, bool) {
	var usable []Slice
	for _, s := range samples {
		if s.RawSW > 0 && s.RawSH > 0 && s.DW > 0 && s.DH > 0 {
			usable = append(usable, s)
		}
	}
	if len(usable) < 2 {
		return Rect{}, false
	}

	scalesX := make([]float64, len(usable))
	scalesY := make([]float64, len(usable))
	for i, s := range usable {
		scalesX[i] = s.DW / s.RawSW
		scalesY[i] = s.DH / s.RawSH
	}
	scaleX, scaleY := median(scalesX), median(scalesY)
	if !isFinite(scaleX) || !isFinite(scaleY) || scaleX <= 0 || scaleY <= 0 {
		return Rect{}, false
	}

	anchorsX := make([]float64, len(usable))
	anchorsY := make([]float64, len(usable))
	for i, s := range usable {
		anchorsX[i] = s.DX - s.SX*scaleX
		anchorsY[i] = s.DY - s.SY*scaleY
	}
	anchorX, anchorY := median(anchorsX), median(anchorsY)

	errsX := make([]float64, len(usable))
	errsY := make([]float64, len(usable))
	for i, s := range usable {
		errsX[i] = math.Abs(anchorX + s.SX*scaleX - s.DX)
		errsY[i] = math.Abs(anchorY + s.SY*scaleY - s.DY)
	}
	if median(errsX) > max(2, 0.75*cell.Width) || median(errsY) > max(2, 0.75*cell.Height) {
		return Rect{}, false
	}

	r := Rect{X: anchorX, Y: anchorY, W: iw * scaleX, H: ih * scaleY}
	return r, r.finite()
}

// contain fits the whole image, aspect preserved and centered, into the
// bounding box of every slice destination.
func contain(samples []Slice, iw, ih float64) (Rect, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range samples {
		if !isFinite(s.DX) || !isFinite(s.DY) || !isFinite(s.DW) || !isFinite(s.DH) {
			return Rect{}, false
		}
		minX = min(minX, s.DX)
		minY = min(minY, s.DY)
		maxX = max(maxX, s.DX+s.DW)
		maxY = max(maxY, s.DY+s.DH)
	}
	bw, bh := maxX-minX, maxY-minY
	if !isFinite(bw) || !isFinite(bh) || bw <= 0 || bh <= 0 {
		return Rect{}, false
	}

	scale := min(bw/iw, bh/ih)
	w, h := iw*scale, ih*scale
	r := Rect{X: minX + (bw-w)/2, Y: minY + (bh-h)/2, W: w, H: h}
	return r, r.finite()
}

// coverage returns the fraction of each image axis covered by the union of
// the slice source rects.
func coverage(samples []Slice, iw, ih float64) (float64, float64) {
	xs := make([][2]float64, 0, len(samples))
	ys := make([][2]float64, 0, len(samples))
	for _, s := range samples {
		xs = append(xs, [2]float64{s.SX, s.SX + s.SW})
		ys = append(ys, [2]float64{s.SY, s.SY + s.SH})
	}
	return unionLength(xs, iw) / iw, unionLength(ys, ih) / ih
}

func unionLength(spans [][2]float64, limit float64) float64 {
	slices.SortFunc(spans, func(a, b [2]float64) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	total, end := 0.0, math.Inf(-1)
	for _, sp := range spans {
		lo, hi := clamp(sp[0], 0, limit), clamp(sp[1], 0, limit)
		if hi <= lo {
			continue
		}
		if lo > end {
			total += hi - lo
			end = hi
			continue
		}
		if hi > end {
			total += hi - end
			end = hi
		}
	}
	return total
}

// Plan is how to draw one image this frame.
type Plan struct {
	ImageID uint32
	Kind    ReconstructKind
	// Slices are drawn when Kind is ReconstructNone.
	Slices []Slice
	// Rect receives the whole image when Kind is ReconstructEstimated or
	// ReconstructContained.
	Rect Rect
}

// PlanImage computes the draw plan for the placements of one image, using
// the decoded image size.
func PlanImage(group []Placement, imageWidth, imageHeight int, cell CellSize) Plan {
	plan := Plan{Slices: make([]Slice, len(group))}
	if len(group) > 0 {
		plan.ImageID = group[0].ImageID
	}
	for i, p := range group {
		plan.Slices[i] = ComputeSlice(p, imageWidth, imageHeight, cell)
	}
	plan.Rect, plan.Kind = Reconstruct(group, plan.Slices, imageWidth, imageHeight, cell)
	if plan.Kind != ReconstructNone {
		plan.Slices = nil
	}
	return plan
}

// GroupByImage splits placements by image id, in order of first appearance.
func GroupByImage(placements []Placement) [][]Placement {
	index := make(map[uint32]int)
	var groups [][]Placement
	for _, p := range placements {
		i, ok := index[p.ImageID]
		if !ok {
			i = len(groups)
			index[p.ImageID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}
	return groups
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
