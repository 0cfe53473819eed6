package strform

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/velworks/strpdf/internal/core/domain"
)

// Extractor parses one STR document into a Record. It holds only the layout
// template and is safe for concurrent use.
type Extractor struct {
	tpl *Template
}

func New(tpl *Template) *Extractor {
	if tpl == nil {
		tpl = DefaultTemplate()
	}
	return &Extractor{tpl: tpl}
}

// Extract reads one document's bytes. It returns domain.ErrFormMismatch when
// no section anchor can be found at all, and a wrapped parse error when the
// bytes are not a readable PDF. Missing optional sections (pasangan, waris,
// anak) leave their groups empty and mark the record partial.
func (e *Extractor) Extract(ctx context.Context, content []byte) (rec *domain.Record, err error) {
	// The pdf library panics on some malformed cross-reference tables;
	// a broken upload must become a per-file failure, not a crash.
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}
	if reader.NumPage() < 1 {
		return nil, domain.ErrFormMismatch
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read page 1", fmt.Errorf("empty page object"))
	}
	lines := buildLines(page.Content().Text)

	pemIdx, pemFound := findSection(lines, e.tpl.Sections.Pemohon, 0)
	pasIdx, pasFound := findSection(lines, e.tpl.Sections.Pasangan, 0)
	anakIdx, anakFound := findSection(lines, e.tpl.Sections.Anak, 0)
	warIdx, warFound := findSection(lines, e.tpl.Sections.Waris, 0)

	warisLines := lines
	warisOnPage := warFound
	if !warFound && reader.NumPage() > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page2 := reader.Page(2)
		if !page2.V.IsNull() {
			warisLines = buildLines(page2.Content().Text)
			warIdx, warFound = findSection(warisLines, e.tpl.Sections.Waris, 0)
			warisOnPage = false
		}
	}

	if !pemFound && !pasFound && !anakFound && !warFound {
		return nil, domain.ErrFormMismatch
	}

	var anchors []int
	for _, a := range []struct {
		found bool
		idx   int
	}{
		{pemFound, pemIdx},
		{pasFound, pasIdx},
		{anakFound, anakIdx},
		{warisOnPage && warFound, warIdx},
	} {
		if a.found {
			anchors = append(anchors, a.idx)
		}
	}
	sort.Ints(anchors)

	pemohon := map[string]string{}
	if pemFound {
		pemohon = extractLabeled(sectionSlice(lines, pemIdx, anchors), e.tpl.PemohonLabels)
	}
	pasangan := map[string]string{}
	if pasFound {
		pasangan = extractLabeled(sectionSlice(lines, pasIdx, anchors), e.tpl.PasanganLabels)
	}
	waris := map[string]string{}
	if warFound {
		warisAnchors := anchors
		if !warisOnPage {
			warisAnchors = nil
		}
		waris = extractLabeled(sectionSlice(warisLines, warIdx, warisAnchors), e.tpl.WarisLabels)
	}

	var dependents []domain.Dependent
	if anakFound {
		dependents = e.parseDependentTable(sectionSlice(lines, anakIdx, anchors))
	}

	record := e.assemble(pemohon, pasangan, waris, dependents)
	record.Document.TarikhCetak = e.printDate(lines)
	if !pasFound || !warFound || !anakFound {
		record.Status = domain.ExtractionPartial
	}
	return record, nil
}

// sectionSlice returns the lines strictly between a section header and the
// next known header (or page end).
func sectionSlice(lines []textLine, headerIdx int, anchors []int) []textLine {
	end := len(lines)
	for _, a := range anchors {
		if a > headerIdx && a < end {
			end = a
		}
	}
	if headerIdx+1 >= end {
		return nil
	}
	return lines[headerIdx+1 : end]
}

// extractLabeled finds label:value pairs inside a section. Labels compete
// longest-first per line so "Nama Bank Pasangan" never feeds the "nama"
// field.
func extractLabeled(lines []textLine, labels map[string]string) map[string]string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(labels[keys[i]]) != len(labels[keys[j]]) {
			return len(labels[keys[i]]) > len(labels[keys[j]])
		}
		return keys[i] < keys[j]
	})

	out := make(map[string]string, len(labels))
	for _, k := range keys {
		out[k] = ""
	}

	for _, ln := range lines {
		upper := ln.upper()
		for _, k := range keys {
			label := strings.ToUpper(normalizeSpace(labels[k]))
			at := strings.Index(upper, label)
			if at < 0 {
				continue
			}
			if out[k] == "" {
				out[k] = labelValue(ln.text, at, len(label))
			}
			break
		}
	}
	return out
}

// labelValue returns the text after the label occurrence, stripped of the
// separator. Offsets are byte offsets; form labels are ASCII.
func labelValue(text string, at, labelLen int) string {
	rest := text[at+labelLen:]
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimLeft(rest, ":;")
	return strings.TrimRight(strings.TrimSpace(rest), ":;,.")
}

// parseDependentTable reads the MAKLUMAT ANAK table. Column boundaries come
// from the header row's keyword positions; data rows bucket their words into
// the nearest column to the left. Rows past domain.MaxDependents are dropped
// silently, matching the fixed-width output schema.
func (e *Extractor) parseDependentTable(lines []textLine) []domain.Dependent {
	headerAt := -1
	var cols []tableColumn
	for i, ln := range lines {
		upper := ln.upper()
		if !anyContained(upper, e.tpl.AnakColumns.Nama) ||
			!anyContained(upper, e.tpl.AnakColumns.MyKad) ||
			!anyContained(upper, e.tpl.AnakColumns.Umur) {
			continue
		}
		cols = headerColumns(ln, e.tpl)
		headerAt = i
		break
	}
	if headerAt < 0 || len(cols) == 0 {
		return nil
	}

	var out []domain.Dependent
	for _, ln := range lines[headerAt+1:] {
		if len(out) == domain.MaxDependents {
			break
		}
		dep := bucketRow(ln, cols)
		if dep.Empty() {
			continue
		}
		out = append(out, dep)
	}
	return out
}

type tableColumn struct {
	x     float64
	field string
}

func headerColumns(header textLine, tpl *Template) []tableColumn {
	var cols []tableColumn
	seen := map[string]bool{}
	for _, w := range header.words {
		upper := strings.ToUpper(w.text)
		field := ""
		switch {
		case anyContained(upper, tpl.AnakColumns.MyKad):
			// Checked before nama: the header reads "NO.MYKAD/MYKID"
			// and must not match a bare NAMA keyword.
			field = "no_mykad"
		case anyContained(upper, tpl.AnakColumns.Nama):
			field = "nama"
		case anyContained(upper, tpl.AnakColumns.Umur):
			field = "umur"
		case anyContained(upper, tpl.AnakColumns.Status):
			field = "status"
		}
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		cols = append(cols, tableColumn{x: w.x, field: field})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].x < cols[j].x })
	return cols
}

// columnSlack lets a data cell start slightly left of its header keyword.
const columnSlack = 5.0

func bucketRow(ln textLine, cols []tableColumn) domain.Dependent {
	cells := make(map[string][]string, len(cols))
	for _, w := range ln.words {
		field := cols[0].field
		for _, c := range cols {
			if w.x >= c.x-columnSlack {
				field = c.field
			}
		}
		cells[field] = append(cells[field], w.text)
	}
	return domain.Dependent{
		Nama:    strings.Join(cells["nama"], " "),
		NoMyKad: strings.Join(cells["no_mykad"], " "),
		Umur:    strings.Join(cells["umur"], " "),
		Status:  strings.Join(cells["status"], " "),
	}
}

func anyContained(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

func (e *Extractor) printDate(lines []textLine) string {
	label := strings.ToUpper(normalizeSpace(e.tpl.PrintDateLabel))
	for _, ln := range lines {
		at := strings.Index(ln.upper(), label)
		if at < 0 {
			continue
		}
		if v := labelValue(ln.text, at, len(label)); v != "" {
			return v
		}
	}
	return ""
}

// assemble applies the field cleaners and groups values into the record.
func (e *Extractor) assemble(pemohon, pasangan, waris map[string]string, dependents []domain.Dependent) *domain.Record {
	rec := &domain.Record{
		Applicant: domain.Applicant{
			Nama:    pemohon["nama"],
			NoMyKad: cleanMyKad(pemohon["no_mykad"]),
			Umur:    cleanAge(pemohon["umur"]),
			Jantina: cleanGender(pemohon["jantina"]),
			Alamat: combineAddress(
				pemohon["alamat_surat"],
				pemohon["poskod"],
				pemohon["bandar_daerah"],
				pemohon["negeri"],
			),
			Poskod:            digitsOnly(pemohon["poskod"]),
			BandarDaerah:      stripNumbers(pemohon["bandar_daerah"]),
			Negeri:            stripSectionLabels(pemohon["negeri"]),
			TelefonBimbit:     pemohon["no_telefon_bimbit"],
			TelefonRumah:      pemohon["no_telefon_rumah"],
			Email:             stripWhitespace(pemohon["alamat_emel"]),
			Pekerjaan:         stripTrailingRM(pemohon["pekerjaan"]),
			PendapatanBulanan: pemohon["pendapatan_kasar"],
			StatusPerkahwinan: pemohon["status_perkahwinan"],
			TarikhPerkahwinan: pemohon["tarikh_perkahwinan"],
			NamaBank:          pemohon["nama_bank"],
			NoAkaunBank:       pemohon["no_akaun_bank"],
		},
		Spouse: domain.Spouse{
			Nama:        pasangan["nama"],
			NoMyKad:     pasangan["no_mykad"],
			Telefon:     digitsOnly(pasangan["no_telefon"]),
			Jantina:     cleanGender(pasangan["jantina"]),
			Pekerjaan:   stripSectionLabels(pasangan["pekerjaan"]),
			NamaBank:    pasangan["nama_bank"],
			NoAkaunBank: pasangan["no_akaun_bank"],
		},
		Beneficiary: domain.Beneficiary{
			Hubungan:     lettersOnly(waris["hubungan"]),
			NoPengenalan: digitsOnly(waris["no_pengenalan"]),
			Nama:         lettersOnly(waris["nama"]),
			Telefon:      digitsOnly(waris["no_telefon"]),
		},
		Document: domain.DocumentInfo{Type: e.tpl.DocumentType},
		Status:   domain.ExtractionOK,
	}
	for i, d := range dependents {
		if i == domain.MaxDependents {
			break
		}
		rec.Dependents[i] = d
	}
	return rec
}
