// Package excel renders session outcomes into the two workbook projections.
package excel

import (
	"fmt"
	"strings"

	"github.com/velworks/strpdf/internal/core/domain"
)

// failureMarker prefixes the Details cell of a row whose source file produced
// no record. Failure rows are kept so every accepted file stays traceable in
// the output.
const failureMarker = "EXTRACTION FAILED: "

// everythingColumns is the full projection: identity columns first, then the
// section groups, the fixed ten dependent slots, document metadata and the
// source filename last.
func everythingColumns() []string {
	cols := []string{
		"pemohon_no_mykad",
		"Card Number",
		"Minimal Detail",
		"Details",
		"pemohon_nama",
		"pemohon_umur",
		"pemohon_jantina",
		"pemohon_alamat",
		"pemohon_poskod",
		"pemohon_bandar_daerah",
		"pemohon_negeri",
		"pemohon_telefon_bimbit",
		"pemohon_telefon_rumah",
		"pemohon_email",
		"pemohon_pekerjaan",
		"pemohon_pendapatan_bulanan",
		"pemohon_status_perkahwinan",
		"pemohon_tarikh_perkahwinan",
		"pemohon_bank_nama_bank",
		"pemohon_bank_no_akaun",
		"pasangan_nama",
		"pasangan_no_mykad",
		"pasangan_telefon",
		"pasangan_jantina",
		"pasangan_pekerjaan",
		"pasangan_bank_nama_bank",
		"pasangan_bank_no_akaun",
		"waris_hubungan",
		"waris_no_pengenalan",
		"waris_nama",
		"waris_telefon",
	}
	for i := 1; i <= domain.MaxDependents; i++ {
		cols = append(cols,
			fmt.Sprintf("anak_%d_nama", i),
			fmt.Sprintf("anak_%d_no_mykad", i),
			fmt.Sprintf("anak_%d_umur", i),
			fmt.Sprintf("anak_%d_status", i),
		)
	}
	return append(cols, "document_type", "document_tarikh_cetak", "source_file")
}

// minimalColumns is the reduced projection used by the downstream card
// workflow.
func minimalColumns() []string {
	return []string{
		"IC",
		"Card Number",
		"Details",
		"NAME",
		"PH1",
		"PH2",
		"ADDRESS",
		"SPOUSE IC",
		"SPOUSE NAME",
		"SPOUSE PH",
		"RELATION",
		"REL-IC",
		"REL-NAME",
		"REL-PH1",
		"EMAIL",
		"source_file",
	}
}

func everythingRow(o domain.FileOutcome) []any {
	if o.Record == nil {
		row := make([]any, len(everythingColumns()))
		for i := range row {
			row[i] = ""
		}
		row[3] = failureMarker + o.Err
		row[len(row)-1] = o.SourceFile
		return row
	}

	r := o.Record
	row := []any{
		r.Applicant.NoMyKad,
		"",
		formatMinimalDetails(r),
		formatDetails(r),
		r.Applicant.Nama,
		r.Applicant.Umur,
		r.Applicant.Jantina,
		r.Applicant.Alamat,
		r.Applicant.Poskod,
		r.Applicant.BandarDaerah,
		r.Applicant.Negeri,
		r.Applicant.TelefonBimbit,
		r.Applicant.TelefonRumah,
		r.Applicant.Email,
		r.Applicant.Pekerjaan,
		r.Applicant.PendapatanBulanan,
		r.Applicant.StatusPerkahwinan,
		r.Applicant.TarikhPerkahwinan,
		r.Applicant.NamaBank,
		r.Applicant.NoAkaunBank,
		r.Spouse.Nama,
		r.Spouse.NoMyKad,
		r.Spouse.Telefon,
		r.Spouse.Jantina,
		r.Spouse.Pekerjaan,
		r.Spouse.NamaBank,
		r.Spouse.NoAkaunBank,
		r.Beneficiary.Hubungan,
		r.Beneficiary.NoPengenalan,
		r.Beneficiary.Nama,
		r.Beneficiary.Telefon,
	}
	for _, d := range r.Dependents {
		row = append(row, d.Nama, d.NoMyKad, d.Umur, d.Status)
	}
	return append(row, r.Document.Type, r.Document.TarikhCetak, o.SourceFile)
}

func minimalRow(o domain.FileOutcome) []any {
	if o.Record == nil {
		return []any{"", "", failureMarker + o.Err, "", "", "", "", "", "", "", "", "", "", "", "", o.SourceFile}
	}

	r := o.Record
	return []any{
		r.Applicant.NoMyKad,
		"",
		formatDetails(r),
		r.Applicant.Nama,
		r.Applicant.TelefonBimbit,
		r.Applicant.TelefonRumah,
		r.Applicant.Alamat,
		r.Spouse.NoMyKad,
		r.Spouse.Nama,
		r.Spouse.Telefon,
		r.Beneficiary.Hubungan,
		r.Beneficiary.NoPengenalan,
		r.Beneficiary.Nama,
		r.Beneficiary.Telefon,
		r.Applicant.Email,
		o.SourceFile,
	}
}

// formatMinimalDetails renders the numbered 13-item identity summary.
func formatMinimalDetails(r *domain.Record) string {
	lines := []string{
		"(1) NAME :- " + r.Applicant.Nama,
		"(2) IC :- " + r.Applicant.NoMyKad,
		"(3) PH1 :- " + r.Applicant.TelefonBimbit,
		"(4) PH2 :- " + r.Applicant.TelefonRumah,
		"(5) ADDRESS :- " + r.Applicant.Alamat,
		"(6) SPOUSE IC :- " + r.Spouse.NoMyKad,
		"(7) SPOUSE NAME :- " + r.Spouse.Nama,
		"(8) SPOUSE PH :- " + r.Spouse.Telefon,
		"(9) RELATION :- " + r.Beneficiary.Hubungan,
		"(10) REL-IC :- " + r.Beneficiary.NoPengenalan,
		"(11) REL-NAME :- " + r.Beneficiary.Nama,
		"(12) REL-PH1 :- " + r.Beneficiary.Telefon,
		"(13) EMAIL :- " + r.Applicant.Email,
	}
	return strings.Join(lines, "\n")
}

// formatDetails renders the numbered summary followed by the full flattened
// field dump, section by section.
func formatDetails(r *domain.Record) string {
	var b strings.Builder
	b.WriteString(formatMinimalDetails(r))
	b.WriteString("\n----------------------------\n")

	writeGroup := func(prefix string, pairs [][2]string) {
		for _, p := range pairs {
			b.WriteString(prefix + p[0] + " :- " + p[1] + "\n")
		}
		b.WriteString("------------------\n")
	}

	writeGroup("pemohon_", [][2]string{
		{"nama", r.Applicant.Nama},
		{"no_mykad", r.Applicant.NoMyKad},
		{"umur", r.Applicant.Umur},
		{"jantina", r.Applicant.Jantina},
		{"alamat", r.Applicant.Alamat},
		{"poskod", r.Applicant.Poskod},
		{"bandar_daerah", r.Applicant.BandarDaerah},
		{"negeri", r.Applicant.Negeri},
		{"telefon_bimbit", r.Applicant.TelefonBimbit},
		{"telefon_rumah", r.Applicant.TelefonRumah},
		{"email", r.Applicant.Email},
		{"pekerjaan", r.Applicant.Pekerjaan},
		{"pendapatan_bulanan", r.Applicant.PendapatanBulanan},
		{"status_perkahwinan", r.Applicant.StatusPerkahwinan},
		{"tarikh_perkahwinan", r.Applicant.TarikhPerkahwinan},
		{"bank_nama_bank", r.Applicant.NamaBank},
		{"bank_no_akaun", r.Applicant.NoAkaunBank},
	})
	writeGroup("pasangan_", [][2]string{
		{"nama", r.Spouse.Nama},
		{"no_mykad", r.Spouse.NoMyKad},
		{"telefon", r.Spouse.Telefon},
		{"jantina", r.Spouse.Jantina},
		{"pekerjaan", r.Spouse.Pekerjaan},
		{"bank_nama_bank", r.Spouse.NamaBank},
		{"bank_no_akaun", r.Spouse.NoAkaunBank},
	})
	writeGroup("waris_", [][2]string{
		{"hubungan", r.Beneficiary.Hubungan},
		{"no_pengenalan", r.Beneficiary.NoPengenalan},
		{"nama", r.Beneficiary.Nama},
		{"telefon", r.Beneficiary.Telefon},
	})

	for i, d := range r.Dependents {
		if d.Empty() {
			continue
		}
		prefix := fmt.Sprintf("anak_%d_", i+1)
		b.WriteString(prefix + "nama :- " + d.Nama + "\n")
		b.WriteString(prefix + "no_mykad :- " + d.NoMyKad + "\n")
		b.WriteString(prefix + "umur :- " + d.Umur + "\n")
		b.WriteString(prefix + "status :- " + d.Status + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
