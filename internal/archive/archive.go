// Package archive packages multiple output files into a ZIP archive and
// reads members of OOXML containers with a memory cap.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMemberSize caps the uncompressed size of a single member read
// with ReadMember.
const DefaultMaxMemberSize int64 = 256 << 20

// MaxMemberSize is the cap applied by ReadMember. Configurable at startup.
var MaxMemberSize = DefaultMaxMemberSize

// ErrMemberTooLarge is returned when a member would exceed the memory cap.
var ErrMemberTooLarge = errors.New("archive member exceeds memory limit")

// Member is one named file inside an output archive.
type Member struct {
	Name string
	Data []byte
}

// Pack writes members into a ZIP archive in the given order.
func Pack(members []Member) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("archive member without a name")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate archive member %q", m.Name)
		}
		seen[m.Name] = true

		w, err := zw.Create(m.Name)
		if err != nil {
			return nil, fmt.Errorf("could not add %s to archive: %w", m.Name, err)
		}
		if _, err := w.Write(m.Data); err != nil {
			return nil, fmt.Errorf("could not write %s to archive: %w", m.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// UnitName returns the 1-indexed member name for a unit of a multi-file
// result, e.g. UnitName("page", 1, "png") is "page_1.png".
func UnitName(prefix string, n int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", prefix, n, ext)
}

// Open opens a ZIP container held in memory.
func Open(data []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

// Find returns the member with the given name, or nil.
func Find(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ReadMember reads a member fully, refusing members whose uncompressed size
// exceeds MaxMemberSize.
func ReadMember(f *zip.File) ([]byte, error) {
	limit := MaxMemberSize
	if limit <= 0 {
		limit = DefaultMaxMemberSize
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%s: %w", f.Name, ErrMemberTooLarge)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The header size can lie; cap the actual read as well.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w", f.Name, ErrMemberTooLarge)
	}
	return data, nil
}
