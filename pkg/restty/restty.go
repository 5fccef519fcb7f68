// Package restty exposes the terminal output interception pipeline for
// embedding in other terminal front ends.
//
// A Pipeline sits between a PTY and a terminal core. It answers the queries
// the core cannot answer on its own (cursor position, device attributes,
// window metrics, default colors), routes clipboard and notification
// requests to the host, tracks private modes and shell-integration prompt
// markers, and inlines Kitty graphics transfers that reference local files.
// Everything else reaches the core byte for byte.
//
// # Basic Usage
//
//	p := restty.New(restty.WithCallbacks(restty.Callbacks{
//		SendReply: func(reply string) { _, _ = ptmx.Write([]byte(reply)) },
//	}))
//	for {
//		n, err := ptmx.Read(buf)
//		if err != nil {
//			break
//		}
//		core.Write([]byte(p.Process(string(buf[:n]))))
//	}
//
// # Hosting a Shell
//
// NewPane spawns a shell on a PTY and writes the filtered output to a
// writer, wiring clipboard, notification and metric collaborators from the
// user configuration:
//
//	cfg, _ := restty.Config.LoadUserConfig()
//	pane, err := restty.NewPane(restty.PaneOptions{Config: cfg, Cols: 80, Rows: 24})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pane.Close()
//
// # Kitty Placements
//
// Renderers that draw Kitty images from placement snapshots can use
// Kitty.PlanImage to get either per-placement slices or one reconstructed
// image rectangle.
package restty

import (
	"github.com/Tonksthebear/restty/internal/config"
	"github.com/Tonksthebear/restty/internal/kitty"
	"github.com/Tonksthebear/restty/internal/terminal"
	"github.com/Tonksthebear/restty/internal/vt"
)

// Pipeline runs terminal output through the Kitty media rewriter and the
// output filter. It is owned by a single reader goroutine.
type Pipeline = terminal.Pipeline

// Pane is a shell hosted on a PTY behind a Pipeline.
type Pane = terminal.Pane

// PaneState is a snapshot of a pane's modes, prompt state and last exit code.
type PaneState = terminal.State

// PaneOptions configures NewPane.
type PaneOptions = terminal.Options

// Collaborator types.
type (
	Callbacks           = vt.Callbacks
	Logger              = vt.Logger
	CursorPosition      = vt.CursorPosition
	WindowMetrics       = vt.WindowMetrics
	DefaultColors       = vt.DefaultColors
	DesktopNotification = vt.DesktopNotification
	WindowOp            = vt.WindowOp
	SemanticMarker      = vt.SemanticMarker
)

// Kitty placement types.
type (
	Placement       = kitty.Placement
	CellSize        = kitty.CellSize
	Plan            = kitty.Plan
	Slice           = kitty.Slice
	Rect            = kitty.Rect
	ReconstructKind = kitty.ReconstructKind
	ImageCache      = kitty.ImageCache
)

// Options configures a Pipeline.
type Options struct {
	// Callbacks are the host collaborators. Nil fields are absent.
	Callbacks Callbacks

	// Logger receives diagnostics for swallowed failures.
	Logger Logger

	// XTVersion is the name reported to XTVERSION queries.
	XTVersion string

	// MarkerHistory is the number of OSC 133 markers to keep. 0 keeps none.
	MarkerHistory int

	// FileMedia enables inlining of Kitty file and temp-file transfers.
	FileMedia bool

	// RemoveTempFiles deletes temp-file transfers once they are read.
	RemoveTempFiles bool

	// MaxFileBytes bounds the size of inlined files. 0 means no limit.
	MaxFileBytes int64

	// ReadFile overrides how file transfers are read (default: os.ReadFile).
	ReadFile func(path string) ([]byte, error)
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Options)

// WithCallbacks sets the host collaborators.
func WithCallbacks(cb Callbacks) Option {
	return func(o *Options) {
		o.Callbacks = cb
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithXTVersion sets the XTVERSION identification string.
func WithXTVersion(name string) Option {
	return func(o *Options) {
		o.XTVersion = name
	}
}

// WithMarkerHistory keeps the last n OSC 133 markers.
func WithMarkerHistory(n int) Option {
	return func(o *Options) {
		o.MarkerHistory = max(n, 0)
	}
}

// WithFileMedia enables or disables inlining of Kitty file transfers.
func WithFileMedia(enabled bool) Option {
	return func(o *Options) {
		o.FileMedia = enabled
	}
}

// WithRemoveTempFiles deletes temp-file transfers after reading them.
func WithRemoveTempFiles(enabled bool) Option {
	return func(o *Options) {
		o.RemoveTempFiles = enabled
	}
}

// WithMaxFileBytes bounds the size of inlined files.
func WithMaxFileBytes(n int64) Option {
	return func(o *Options) {
		o.MaxFileBytes = max(n, 0)
	}
}

// WithReadFile overrides how file transfers are read.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(o *Options) {
		o.ReadFile = fn
	}
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		XTVersion:    vt.DefaultXTVersion,
		FileMedia:    true,
		MaxFileBytes: config.DefaultMaxFileBytes,
	}
}

// New creates a Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return terminal.NewPipeline(terminal.PipelineConfig{
		Callbacks:       options.Callbacks,
		Logger:          options.Logger,
		XTVersion:       options.XTVersion,
		MarkerHistory:   options.MarkerHistory,
		ResolveFiles:    options.FileMedia,
		RemoveTempFiles: options.RemoveTempFiles,
		MaxFileBytes:    options.MaxFileBytes,
		ReadFile:        options.ReadFile,
	})
}

// NewPane spawns a shell on a PTY behind a Pipeline.
func NewPane(opts PaneOptions) (*Pane, error) {
	return terminal.NewPane(opts)
}

// Config re-exports the config package for customization.
var Config = struct {
	// LoadUserConfig loads the user's configuration file.
	LoadUserConfig func() (*config.UserConfig, error)
	// DefaultConfig returns the default configuration.
	DefaultConfig func() *config.UserConfig
	// GetConfigPath returns the path to the configuration file.
	GetConfigPath func() (string, error)
}{
	LoadUserConfig: config.LoadUserConfig,
	DefaultConfig:  config.DefaultConfig,
	GetConfigPath:  config.GetConfigPath,
}

// Kitty re-exports the placement helpers.
var Kitty = struct {
	// PlanImage decides how to draw one image's placements.
	PlanImage func(group []Placement, imageWidth, imageHeight int, cell CellSize) Plan
	// GroupByImage splits placements by image id, keeping first-seen order.
	GroupByImage func(placements []Placement) [][]Placement
	// NewImageCache creates a decoded-image cache.
	NewImageCache func(opts ...kitty.CacheOption) *ImageCache
}{
	PlanImage:     kitty.PlanImage,
	GroupByImage:  kitty.GroupByImage,
	NewImageCache: kitty.NewImageCache,
}
