package vt

import (
	"encoding/base64"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// OSC codes handled by the dispatcher.
const (
	oscNotify          = 9
	oscForegroundColor = 10
	oscBackgroundColor = 11
	oscCursorColor     = 12
	oscClipboard       = 52
	oscSemanticPrompt  = 133
	oscNotifyRich      = 777
)

// conEmuSubcommand matches the OSC 9 bodies ConEmu uses for its own numeric
// sub-protocol (progress, cwd, ...). Those are not notifications.
var conEmuSubcommand = regexp.MustCompile(`^(?:[2-9]|1[0-2]?)(?:;|$)`)

// oscCode splits an OSC body into its numeric code and the rest.
func oscCode(body string) (code int, rest string, ok bool) {
	head, rest, _ := strings.Cut(body, ";")
	if head == "" {
		return 0, "", false
	}
	for i := 0; i < len(head); i++ {
		if head[i] < '0' || head[i] > '9' {
			return 0, "", false
		}
	}
	code, err := strconv.Atoi(head)
	if err != nil {
		return 0, "", false
	}
	return code, rest, true
}

// DispatchOsc handles an OSC body (the bytes between ESC ] and the
// terminator). It reports whether the sequence was consumed. Codes 9, 777
// and 52 are always consumed, even when malformed.
func DispatchOsc(body string, cb *Callbacks, logger Logger) bool {
	code, rest, ok := oscCode(body)
	if !ok {
		return false
	}

	switch code {
	case oscNotify:
		handleNotify(body, rest, cb)
		return true
	case oscNotifyRich:
		handleRichNotify(body, rest, cb)
		return true
	case oscClipboard:
		handleClipboard(rest, cb, logger)
		return true
	case oscForegroundColor, oscBackgroundColor, oscCursorColor:
		return handleDefaultColorQuery(code, rest, cb)
	}
	return false
}

func handleNotify(raw, text string, cb *Callbacks) {
	if text == "" || conEmuSubcommand.MatchString(text) {
		return
	}
	if cb.DesktopNotification != nil {
		cb.DesktopNotification(DesktopNotification{
			Body:   text,
			Source: NotificationOSC9,
			Raw:    raw,
		})
	}
}

func handleRichNotify(raw, rest string, cb *Callbacks) {
	payload, ok := strings.CutPrefix(rest, "notify;")
	if !ok {
		return
	}
	title, body, ok := strings.Cut(payload, ";")
	if !ok {
		return
	}
	if cb.DesktopNotification != nil {
		cb.DesktopNotification(DesktopNotification{
			Title:  title,
			Body:   body,
			Source: NotificationOSC777,
			Raw:    raw,
		})
	}
}

// ClipboardReply builds the OSC 52 reply carrying text for target.
func ClipboardReply(target, text string) string {
	return "\x1b]52;" + target + ";" + base64.StdEncoding.EncodeToString([]byte(text)) + "\x07"
}

// decodeBase64 decodes padded or unpadded base64. Undecodable input yields
// nil.
func decodeBase64(s string) []byte {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b
	}
	if b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return b
	}
	return nil
}

func handleClipboard(rest string, cb *Callbacks, logger Logger) {
	target, payload, ok := strings.Cut(rest, ";")
	if !ok {
		return
	}

	if payload == "?" {
		read := cb.ClipboardRead
		if read == nil {
			return
		}
		go func() {
			text, ok, err := read()
			if err != nil {
				logf(logger, "clipboard read failed: %v", err)
				return
			}
			if !ok {
				text = ""
			}
			cb.reply(ClipboardReply(target, text))
		}()
		return
	}

	if cb.ClipboardWrite == nil {
		return
	}
	text := strings.ToValidUTF8(string(decodeBase64(payload)), "\uFFFD")
	if err := cb.ClipboardWrite(text); err != nil {
		logf(logger, "clipboard write failed: %v", err)
	}
}

// opaque drops alpha so the reply carries the straight 8-bit channels.
func opaque(c color.Color) color.Color {
	rgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 0xff}
}

func handleDefaultColorQuery(code int, rest string, cb *Callbacks) bool {
	if rest != "?" || cb.DefaultColors == nil {
		return false
	}
	colors := cb.DefaultColors()

	var c color.Color
	switch code {
	case oscForegroundColor:
		c = colors.Foreground
	case oscBackgroundColor:
		c = colors.Background
	case oscCursorColor:
		c = colors.Cursor
	}
	if c == nil {
		return false
	}

	xrgb := ansi.XRGBColor{Color: opaque(c)}
	switch code {
	case oscForegroundColor:
		cb.reply(ansi.SetForegroundColor(xrgb.String()))
	case oscBackgroundColor:
		cb.reply(ansi.SetBackgroundColor(xrgb.String()))
	case oscCursorColor:
		cb.reply(ansi.SetCursorColor(xrgb.String()))
	}
	return true
}

func logf(logger Logger, format string, v ...any) {
	if logger != nil {
		logger.Printf(format, v...)
	}
}
