// Package evidence validates uploaded report attachments by extension,
// size and sniffed content type before anything is stored.
package evidence

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

var (
	ErrEmpty           = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrContentMismatch = errors.New("file content does not match its extension")
)

// TooLargeError is returned when a file exceeds its category limit.
type TooLargeError struct {
	Kind     Kind
	MaxBytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s files must be at most %d MB", e.Kind, e.MaxBytes/(1<<20))
}

type rule struct {
	kind     Kind
	maxBytes int64
	accepts  func(mime string) bool
}

type Limits struct {
	MaxImageMB    int64
	MaxVideoMB    int64
	MaxDocumentMB int64
	ImageExts     []string
	VideoExts     []string
	DocumentExts  []string
}

type Validator struct {
	byExt map[string]rule
}

func NewValidator(l Limits) *Validator {
	v := &Validator{byExt: make(map[string]rule)}
	add := func(exts []string, r rule) {
		for _, e := range exts {
			v.byExt[strings.TrimPrefix(strings.ToLower(e), ".")] = r
		}
	}
	add(l.ImageExts, rule{KindImage, l.MaxImageMB << 20, func(m string) bool { return strings.HasPrefix(m, "image/") }})
	add(l.VideoExts, rule{KindVideo, l.MaxVideoMB << 20, func(m string) bool { return strings.HasPrefix(m, "video/") }})
	add(l.DocumentExts, rule{KindDocument, l.MaxDocumentMB << 20, func(m string) bool { return m == "application/pdf" }})
	return v
}

// Upload is a file received from a client. File is rewound after sniffing.
type Upload struct {
	Filename string
	Size     int64
	File     io.ReadSeeker
}

type Checked struct {
	Kind     Kind
	Filename string
	MIME     string
	Size     int64
}

func (v *Validator) Validate(u Upload) (*Checked, error) {
	if u.File == nil || u.Size <= 0 {
		return nil, ErrEmpty
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.Filename)), ".")
	r, ok := v.byExt[ext]
	if !ok {
		return nil, ErrUnsupportedType
	}
	if u.Size > r.maxBytes {
		return nil, &TooLargeError{Kind: r.kind, MaxBytes: r.maxBytes}
	}

	mt, err := mimetype.DetectReader(u.File)
	if err != nil {
		return nil, fmt.Errorf("sniff: %w", err)
	}
	if _, err := u.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !r.accepts(mime) {
		return nil, ErrContentMismatch
	}

	return &Checked{
		Kind:     r.kind,
		Filename: CleanFilename(u.Filename),
		MIME:     mime,
		Size:     u.Size,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func CleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	if len(name) > 120 {
		ext := filepath.Ext(name)
		name = name[:120-len(ext)] + ext
	}
	return name
}

// ObjectKey is the storage key for a report attachment.
func ObjectKey(ownerID uint, filename string) string {
	return fmt.Sprintf("reports/%d/%s_%s", ownerID, uuid.NewString(), CleanFilename(filename))
}
