package kitty

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Tonksthebear/restty/internal/vt"
	"github.com/charmbracelet/x/ansi"
)

const (
	esc = 0x1b
	bel = 0x07
	st  = "\x1b\\"
)

var (
	// ErrInvalidPath is returned for file payloads that do not decode to a
	// usable path.
	ErrInvalidPath = errors.New("kitty: invalid file path")

	errNotFileMedium = errors.New("kitty: not a file medium")
	errFileTooLarge  = errors.New("kitty: file exceeds size limit")
	errEmptyFile     = errors.New("kitty: no image data")
)

// ReadFileFunc loads the bytes a file-medium transfer refers to.
type ReadFileFunc func(path string) ([]byte, error)

// RewriterOption configures a MediaRewriter.
type RewriterOption func(*MediaRewriter)

// WithRewriterLogger sets the logger used for rewrites that were skipped.
func WithRewriterLogger(l vt.Logger) RewriterOption {
	return func(r *MediaRewriter) { r.logger = l }
}

// WithRemoveTempFiles deletes t=t files after they were read successfully.
func WithRemoveTempFiles(remove func(path string) error) RewriterOption {
	return func(r *MediaRewriter) { r.removeTemp = remove }
}

// WithMaxFileBytes rejects files larger than n bytes. Zero means no limit.
func WithMaxFileBytes(n int64) RewriterOption {
	return func(r *MediaRewriter) { r.maxFileBytes = n }
}

// MediaRewriter turns Kitty graphics transfers that reference local files
// (t=f, t=t) into direct transfers carrying the file contents, so the core
// never has to touch the filesystem. Like vt.OutputFilter it holds back at
// most one incomplete escape sequence between calls.
type MediaRewriter struct {
	logger       vt.Logger
	removeTemp   func(string) error
	maxFileBytes int64

	remainder []byte
}

// NewMediaRewriter creates a rewriter.
func NewMediaRewriter(opts ...RewriterOption) *MediaRewriter {
	r := &MediaRewriter{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RewriteFileMediaToDirect processes one chunk of output. Any transfer that
// cannot be resolved is returned untouched.
func (r *MediaRewriter) RewriteFileMediaToDirect(chunk string, readFile ReadFileFunc) string {
	if len(r.remainder) == 0 && strings.IndexByte(chunk, esc) < 0 {
		return chunk
	}

	var buf []byte
	if len(r.remainder) > 0 {
		buf = make([]byte, 0, len(r.remainder)+len(chunk))
		buf = append(buf, r.remainder...)
		buf = append(buf, chunk...)
		r.remainder = r.remainder[:0]
	} else {
		buf = []byte(chunk)
	}

	var out strings.Builder
	out.Grow(len(buf))
	i := 0
	for i < len(buf) {
		idx := bytes.IndexByte(buf[i:], esc)
		if idx < 0 {
			out.Write(buf[i:])
			break
		}
		start := i + idx
		out.Write(buf[i:start])

		// ESC and ESC _ alone cannot be classified yet.
		if start+1 >= len(buf) || (buf[start+1] == '_' && start+2 >= len(buf)) {
			r.stash(buf[start:])
			break
		}
		if buf[start+1] != '_' || buf[start+2] != 'G' {
			out.WriteByte(esc)
			i = start + 1
			continue
		}

		end, termLen := findTerminator(buf, start+3)
		if end < 0 {
			r.stash(buf[start:])
			break
		}
		seq := buf[start:end]
		data := string(buf[start+3 : end-termLen])
		rewritten, err := r.rewrite(data, termLen == 1, readFile)
		switch {
		case err == nil:
			out.WriteString(rewritten)
		case errors.Is(err, errNotFileMedium):
			out.Write(seq)
		default:
			if r.logger != nil {
				r.logger.Printf("kitty: leaving file transfer unresolved: %v", err)
			}
			out.Write(seq)
		}
		i = end
	}
	return out.String()
}

func (r *MediaRewriter) stash(b []byte) {
	r.remainder = append(r.remainder[:0], b...)
}

// Pending returns the number of bytes held back as an incomplete sequence.
func (r *MediaRewriter) Pending() int {
	return len(r.remainder)
}

// Reset drops any incomplete sequence.
func (r *MediaRewriter) Reset() {
	r.remainder = r.remainder[:0]
}

func findTerminator(buf []byte, from int) (end, termLen int) {
	for j := from; j < len(buf); j++ {
		switch buf[j] {
		case bel:
			return j + 1, 1
		case esc:
			if j+1 < len(buf) && buf[j+1] == '\\' {
				return j + 2, 2
			}
		}
	}
	return -1, 0
}

func (r *MediaRewriter) rewrite(data string, belTerminated bool, readFile ReadFileFunc) (string, error) {
	cmd := ParseCommand(data)
	medium := cmd.Medium()
	if medium != MediumFile && medium != MediumTempFile {
		return "", errNotFileMedium
	}
	if readFile == nil {
		return "", errors.New("kitty: no file reader")
	}

	path, err := DecodePath(cmd.Payload)
	if err != nil {
		return "", err
	}
	contents, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if r.maxFileBytes > 0 && int64(len(contents)) > r.maxFileBytes {
		return "", fmt.Errorf("%s: %w (%d > %d)", path, errFileTooLarge, len(contents), r.maxFileBytes)
	}
	contents, err = applyRange(&cmd, contents)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	// A direct transfer needs a payload.
	if len(contents) == 0 {
		return "", fmt.Errorf("%s: %w", path, errEmptyFile)
	}

	if medium == MediumTempFile && r.removeTemp != nil {
		if err := r.removeTemp(path); err != nil && r.logger != nil {
			r.logger.Printf("kitty: remove temp file %s: %v", path, err)
		}
	}

	cmd.Set(KeyMedium, string(MediumDirect))
	cmd.Set(KeyMore, "0")
	cmd.Delete(KeySize)
	cmd.Delete(KeyOffset)

	payload := base64.StdEncoding.EncodeToString(contents)
	out := ansi.KittyGraphics([]byte(payload), cmd.Options()...)
	if belTerminated {
		out = strings.TrimSuffix(out, st) + "\a"
	}
	return out, nil
}

// applyRange honors the O= (offset) and S= (size) keys of a file transfer.
func applyRange(cmd *Command, contents []byte) ([]byte, error) {
	offset, err := intParam(cmd, KeyOffset)
	if err != nil {
		return nil, err
	}
	size, err := intParam(cmd, KeySize)
	if err != nil {
		return nil, err
	}
	if offset > len(contents) {
		return nil, fmt.Errorf("offset %d beyond end of file", offset)
	}
	contents = contents[offset:]
	if size > 0 && size < len(contents) {
		contents = contents[:size]
	}
	return contents, nil
}

func intParam(cmd *Command, key string) (int, error) {
	v, ok := cmd.Get(key)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s=%q", key, v)
	}
	return n, nil
}

// DecodePath decodes the base64 payload of a file transfer. Empty paths and
// paths containing NUL are rejected with ErrInvalidPath.
func DecodePath(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
	}
	if len(raw) == 0 || bytes.IndexByte(raw, 0) >= 0 {
		return "", ErrInvalidPath
	}
	return string(raw), nil
}
