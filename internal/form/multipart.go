package form

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/frankli0324/go-asks/internal/charset"
)

const boundaryPrefix = "goasks"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Multipart builds multipart/form-data bodies. Every instance owns its own
// boundary, generated once and reused for all parts it encodes.
type Multipart struct {
	boundary string
	enc      charset.Encoder
}

func NewMultipart(enc charset.Encoder) *Multipart {
	if enc == nil {
		enc = func(s string) ([]byte, error) { return []byte(s), nil }
	}
	return &Multipart{
		boundary: boundaryPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		enc:      enc,
	}
}

func (m *Multipart) Boundary() string { return m.boundary }

func (m *Multipart) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

// Encode writes one part per field, in order. A string value naming a
// readable regular file becomes a file part; everything else, including paths
// that cannot be opened, is sent as text.
func (m *Multipart) Encode(ctx context.Context, parts Values) ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, p := range parts {
		buf.WriteString("--" + m.boundary + "\r\n")
		if err := m.writePart(ctx, buf, p); err != nil {
			return nil, err
		}
	}
	if len(parts) > 0 {
		buf.WriteString("--" + m.boundary + "--\r\n")
	}
	return buf.Bytes(), nil
}

func (m *Multipart) writePart(ctx context.Context, buf *bytes.Buffer, p Field) error {
	disposition := fmt.Sprintf(`Content-Disposition: form-data; name="%s"`, quoteEscaper.Replace(p.Key))
	if path, ok := p.Value.(string); ok {
		content, err := readFile(ctx, path)
		if err == nil {
			base := filepath.Base(path)
			hdr, err := m.enc(disposition + fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(base)) +
				"\r\nContent-Type: " + GuessType(base) + "\r\n\r\n")
			if err != nil {
				return err
			}
			buf.Write(hdr)
			buf.Write(content)
			buf.WriteString("\r\n")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	text, ok := scalar(p.Value)
	if !ok {
		text = fmt.Sprint(p.Value)
	}
	b, err := m.enc(disposition + "\r\n\r\n" + text + "\r\n")
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// GuessType maps a file name to a media type, defaulting to
// application/octet-stream.
func GuessType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("form: %s is not a regular file", path)
	}
	buf := bytes.NewBuffer(make([]byte, 0, st.Size()))
	if _, err := io.Copy(buf, ctxReader{ctx, f}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
