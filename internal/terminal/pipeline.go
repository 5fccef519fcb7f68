// Package terminal hosts a shell on a PTY and runs its output through the
// interception pipeline before it reaches the renderer.
package terminal

import (
	"os"

	"github.com/Tonksthebear/restty/internal/kitty"
	"github.com/Tonksthebear/restty/internal/vt"
)

// PipelineConfig configures a Pipeline. The zero value filters only: file
// media is left untouched and nothing is logged.
type PipelineConfig struct {
	Callbacks     vt.Callbacks
	Logger        vt.Logger
	XTVersion     string
	MarkerHistory int // OSC 133 markers to keep; 0 keeps none

	// ResolveFiles enables the Kitty file-medium rewriter.
	ResolveFiles    bool
	RemoveTempFiles bool
	MaxFileBytes    int64
	// ReadFile defaults to os.ReadFile.
	ReadFile kitty.ReadFileFunc
}

// Pipeline runs one pane's output through the Kitty media rewriter and then
// the output filter. Like the filter it is owned by a single reader goroutine.
type Pipeline struct {
	rewriter *kitty.MediaRewriter
	readFile kitty.ReadFileFunc
	filter   *vt.OutputFilter
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	opts := []vt.Option{vt.WithLogger(cfg.Logger), vt.WithXTVersion(cfg.XTVersion)}
	if cfg.MarkerHistory > 0 {
		opts = append(opts, vt.WithMarkerHistory(cfg.MarkerHistory))
	}
	p := &Pipeline{filter: vt.NewOutputFilter(cfg.Callbacks, opts...)}

	if cfg.ResolveFiles {
		ropts := []kitty.RewriterOption{kitty.WithRewriterLogger(cfg.Logger)}
		if cfg.RemoveTempFiles {
			ropts = append(ropts, kitty.WithRemoveTempFiles(os.Remove))
		}
		if cfg.MaxFileBytes > 0 {
			ropts = append(ropts, kitty.WithMaxFileBytes(cfg.MaxFileBytes))
		}
		p.rewriter = kitty.NewMediaRewriter(ropts...)
		p.readFile = cfg.ReadFile
		if p.readFile == nil {
			p.readFile = os.ReadFile
		}
	}
	return p
}

// Process runs a chunk through the pipeline and returns what the renderer
// should see.
func (p *Pipeline) Process(chunk string) string {
	if p.rewriter != nil {
		chunk = p.rewriter.RewriteFileMediaToDirect(chunk, p.readFile)
	}
	return p.filter.Filter(chunk)
}

// Filter exposes the output filter for mode and prompt state.
func (p *Pipeline) Filter() *vt.OutputFilter {
	return p.filter
}

// Pending is the number of bytes held back across both stages.
func (p *Pipeline) Pending() int {
	n := p.filter.Pending()
	if p.rewriter != nil {
		n += p.rewriter.Pending()
	}
	return n
}

// Reset drops any held-back bytes.
func (p *Pipeline) Reset() {
	if p.rewriter != nil {
		p.rewriter.Reset()
	}
	p.filter.Reset()
}
