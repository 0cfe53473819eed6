// Package archive expands uploaded zip bundles into individual documents.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

// ZipExpander unpacks one level of a zip archive. Nested archives are not
// descended into and directory entries are skipped; eligibility of the
// remaining members is the caller's call, so ineligible ones can be reported
// back instead of vanishing.
type ZipExpander struct{}

func NewZipExpander() *ZipExpander { return &ZipExpander{} }

var _ ports.ArchiveExpander = (*ZipExpander)(nil)

// Expand returns the regular-file members of the archive in member order.
// Member names are flattened to their base name so the session keys stay
// uniform.
func (z *ZipExpander) Expand(filename string, content []byte) ([]ports.ArchiveEntry, error) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "archive: open "+filename, err)
	}

	var entries []ports.ArchiveEntry
	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		name := path.Base(member.Name)
		rc, err := member.Open()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "archive: open member "+member.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "archive: read member "+member.Name, err)
		}
		entries = append(entries, ports.ArchiveEntry{Name: name, Content: data})
	}
	return entries, nil
}
