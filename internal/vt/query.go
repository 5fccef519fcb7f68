package vt

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// DefaultXTVersion is the name reported in XTVERSION replies.
const DefaultXTVersion = "ghostty 1.0"

// XTWINOPS report requests answered from WindowMetrics.
const (
	winopReportPixelSize     = 14
	winopReportCellPixelSize = 16
	winopReportCellCount     = 18
	winopResizeCells         = 8
)

// XTWINOPS report replies.
const (
	winopPixelSizeReply     = 4
	winopCellPixelSizeReply = 6
	winopCellCountReply     = 8
)

// XTVersionReply builds the DCS > | name ST reply to an XTVERSION query.
func XTVersionReply(name string) string {
	return "\x1bP>|" + name + "\x1b\\"
}

// HandleCoreCsiSequence answers the queries the core cannot answer on its own:
// cursor position (CSI 6 n), XTVERSION (CSI > q) and primary device
// attributes (CSI c, CSI 0 c). It reports whether seq was consumed.
//
// CPR needs a cursor position provider; without one the query is left for
// the caller.
func HandleCoreCsiSequence(seq string, cb *Callbacks, xtversion string) bool {
	switch seq {
	case ansi.RequestCursorPositionReport:
		if cb.CursorPosition == nil {
			return false
		}
		pos := cb.CursorPosition()
		cb.reply(ansi.CursorPositionReport(pos.Row, pos.Col))
		return true
	case ansi.RequestNameVersion:
		if xtversion == "" {
			xtversion = DefaultXTVersion
		}
		cb.reply(XTVersionReply(xtversion))
		return true
	case ansi.RequestPrimaryDeviceAttributes, "\x1b[0c":
		cb.reply(ansi.PrimaryDeviceAttributes(1, 2))
		return true
	}
	return false
}

// parseWindowOpParams parses CSI Ps ; Ps ; Ps t. At least one digit is
// required; empty parameters read as zero.
func parseWindowOpParams(seq string) ([]int, bool) {
	if len(seq) < 4 || !strings.HasPrefix(seq, "\x1b[") || seq[len(seq)-1] != 't' {
		return nil, false
	}
	body := seq[2 : len(seq)-1]
	if strings.Trim(body, ";") == "" {
		return nil, false
	}
	fields := strings.Split(body, ";")
	params := make([]int, 0, len(fields))
	for _, field := range fields {
		if field == "" {
			params = append(params, 0)
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, false
		}
		params = append(params, n)
	}
	return params, true
}

// HandleWindowOpSequence handles XTWINOPS sequences. Size reports (14, 16
// and 18) are answered from the metrics provider. Everything else, and the
// reports when no metrics are available, is forwarded to the WindowOp
// callback. Without a callback the sequence is left unhandled.
func HandleWindowOpSequence(seq string, cb *Callbacks) bool {
	params, ok := parseWindowOpParams(seq)
	if !ok {
		return false
	}

	if len(params) == 1 && cb.WindowMetrics != nil {
		if m, ok := cb.WindowMetrics(); ok {
			switch params[0] {
			case winopReportPixelSize:
				cb.reply(ansi.WindowOp(winopPixelSizeReply, m.HeightPx, m.WidthPx))
				return true
			case winopReportCellPixelSize:
				cb.reply(ansi.WindowOp(winopCellPixelSizeReply, m.CellHeightPx, m.CellWidthPx))
				return true
			case winopReportCellCount:
				cb.reply(ansi.WindowOp(winopCellCountReply, m.Rows, m.Cols))
				return true
			}
		}
	}

	if cb.WindowOp == nil {
		return false
	}

	op := WindowOp{Type: WindowOpUnknown, Params: params, Raw: seq}
	if params[0] == winopResizeCells && len(params) >= 3 {
		op.Type = WindowOpResize
		op.Rows = params[1]
		op.Cols = params[2]
	}
	cb.WindowOp(op)
	return true
}
