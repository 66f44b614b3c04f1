package evidence_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"safevoice/pkg/evidence"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func testValidator() *evidence.Validator {
	return evidence.NewValidator(evidence.Limits{
		MaxImageMB:    5,
		MaxVideoMB:    20,
		MaxDocumentMB: 10,
		ImageExts:     []string{"jpg", "jpeg", "png"},
		VideoExts:     []string{"mp4", "mov", "avi"},
		DocumentExts:  []string{"pdf"},
	})
}

func TestValidate(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name     string
		filename string
		content  []byte
		size     int64
		wantKind evidence.Kind
		wantErr  error
	}{
		{"png ok", "photo.PNG", pngHeader, int64(len(pngHeader)), evidence.KindImage, nil},
		{"pdf ok", "memo.pdf", pdf, int64(len(pdf)), evidence.KindDocument, nil},
		{"unknown extension", "notes.txt", []byte("hello"), 5, "", evidence.ErrUnsupportedType},
		{"no extension", "README", []byte("hello"), 5, "", evidence.ErrUnsupportedType},
		{"empty", "photo.png", nil, 0, "", evidence.ErrEmpty},
		{"text renamed to pdf", "fake.pdf", []byte("just some text"), 14, "", evidence.ErrContentMismatch},
		{"pdf renamed to png", "fake.png", pdf, int64(len(pdf)), "", evidence.ErrContentMismatch},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(evidence.Upload{Filename: tt.filename, Size: tt.size, File: bytes.NewReader(tt.content)})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

func TestValidateTooLarge(t *testing.T) {
	v := testValidator()
	_, err := v.Validate(evidence.Upload{Filename: "big.jpg", Size: 6 << 20, File: bytes.NewReader(pngHeader)})

	var tooLarge *evidence.TooLargeError
	require.True(t, errors.As(err, &tooLarge))
	require.Equal(t, evidence.KindImage, tooLarge.Kind)
	require.Contains(t, err.Error(), "5 MB")
}

func TestValidateRewindsFile(t *testing.T) {
	v := testValidator()
	r := bytes.NewReader(pngHeader)
	_, err := v.Validate(evidence.Upload{Filename: "a.png", Size: int64(len(pngHeader)), File: r})
	require.NoError(t, err)
	require.Equal(t, int64(len(pngHeader)), int64(r.Len()))
}

func TestCleanFilename(t *testing.T) {
	require.Equal(t, "my_file_1_.pdf", evidence.CleanFilename("my file (1).pdf"))
	require.Equal(t, "passwd", evidence.CleanFilename("../../etc/passwd"))
	require.Equal(t, "evil.png", evidence.CleanFilename(`C:\Users\x\evil.png`))

	long := strings.Repeat("a", 200) + ".pdf"
	require.Len(t, evidence.CleanFilename(long), 120)
}

func TestObjectKey(t *testing.T) {
	k := evidence.ObjectKey(9, "a b.png")
	require.True(t, strings.HasPrefix(k, "reports/9/"))
	require.True(t, strings.HasSuffix(k, "_a_b.png"))
}
