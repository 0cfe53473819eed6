// Package strform extracts structured data from STR (Sumbangan Tunai Rahmah)
// statutory-report PDFs. The engine is specialized to this one form family:
// it locates the form's section anchors by label, reads labeled values inside
// each section and parses the repeating dependent table, capped at
// domain.MaxDependents rows (slots past the cap are dropped).
package strform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template describes the form layout the engine anchors on: section header
// keywords, per-section field labels and the dependent-table column keywords.
// The compiled-in default matches STR form revisions v1 and v2; a YAML file
// can override it for layout drift without a rebuild.
type Template struct {
	DocumentType string `yaml:"document_type"`

	Sections struct {
		Pemohon  []string `yaml:"pemohon"`
		Pasangan []string `yaml:"pasangan"`
		Anak     []string `yaml:"anak"`
		Waris    []string `yaml:"waris"`
	} `yaml:"sections"`

	// Field labels as printed on the form, keyed by output field name.
	PemohonLabels  map[string]string `yaml:"pemohon_labels"`
	PasanganLabels map[string]string `yaml:"pasangan_labels"`
	WarisLabels    map[string]string `yaml:"waris_labels"`

	// Dependent-table header keywords; a header row must contain all of
	// Nama, MyKad and Umur keywords to be recognized.
	AnakColumns struct {
		Nama   []string `yaml:"nama"`
		MyKad  []string `yaml:"mykad"`
		Umur   []string `yaml:"umur"`
		Status []string `yaml:"status"`
	} `yaml:"anak_columns"`

	PrintDateLabel string `yaml:"print_date_label"`
}

// DefaultTemplate returns the built-in STR layout.
func DefaultTemplate() *Template {
	t := &Template{
		DocumentType:   "Sumbangan Tunai Rahmah (STR)",
		PrintDateLabel: "Tarikh Cetak",
		PemohonLabels: map[string]string{
			"nama":               "Nama",
			"no_mykad":           "No. MyKad",
			"umur":               "Umur",
			"jantina":            "Jantina",
			"alamat_surat":       "Alamat Surat Menyurat",
			"poskod":             "Poskod",
			"bandar_daerah":      "Bandar / Daerah",
			"negeri":             "Negeri",
			"no_telefon_bimbit":  "No. Telefon Bimbit",
			"no_telefon_rumah":   "No. Telefon Rumah",
			"alamat_emel":        "Alamat Emel",
			"pekerjaan":          "Pekerjaan",
			"pendapatan_kasar":   "Pendapatan Kasar Bulanan",
			"status_perkahwinan": "Status Perkahwinan",
			"tarikh_perkahwinan": "Tarikh Perkahwinan",
			"nama_bank":          "Nama Bank",
			"no_akaun_bank":      "No. Akaun Bank",
		},
		PasanganLabels: map[string]string{
			"nama":          "Nama",
			"no_mykad":      "MyKAD",
			"no_telefon":    "No. Telefon",
			"jantina":       "Jantina",
			"pekerjaan":     "Pekerjaan",
			"nama_bank":     "Nama Bank Pasangan",
			"no_akaun_bank": "No Akaun Bank Pasangan",
		},
		WarisLabels: map[string]string{
			"hubungan":      "Hubungan",
			"no_pengenalan": "No Pengenalan",
			"nama":          "Nama",
			"no_telefon":    "No Telefon",
		},
	}
	t.Sections.Pemohon = []string{"MAKLUMAT", "PEMOHON"}
	t.Sections.Pasangan = []string{"MAKLUMAT", "PASANGAN"}
	t.Sections.Anak = []string{"MAKLUMAT", "ANAK"}
	t.Sections.Waris = []string{"MAKLUMAT", "WARIS"}
	t.AnakColumns.Nama = []string{"NAMA"}
	t.AnakColumns.MyKad = []string{"MYKAD", "MYKID"}
	t.AnakColumns.Umur = []string{"UMUR"}
	t.AnakColumns.Status = []string{"STATUS", "HUBUNGAN"}
	return t
}

// LoadTemplate reads a YAML layout override. Fields left empty in the file
// keep their defaults.
func LoadTemplate(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form template: %w", err)
	}
	t := DefaultTemplate()
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("parse form template: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("validate form template: %w", err)
	}
	return t, nil
}

func (t *Template) validate() error {
	if len(t.Sections.Pemohon) == 0 {
		return fmt.Errorf("pemohon section keywords are required")
	}
	if len(t.PemohonLabels) == 0 {
		return fmt.Errorf("pemohon field labels are required")
	}
	return nil
}
