package domain

// MaxDependents is the fixed width of the dependent slot sequence in the
// output schema. Dependents past this cap are not represented.
const MaxDependents = 10

type ExtractionStatus string

const (
	ExtractionOK      ExtractionStatus = "ok"
	ExtractionPartial ExtractionStatus = "partial"
)

// Applicant holds the MAKLUMAT PEMOHON field group.
type Applicant struct {
	Nama              string `json:"nama"`
	NoMyKad           string `json:"no_mykad"`
	Umur              string `json:"umur"`
	Jantina           string `json:"jantina"`
	Alamat            string `json:"alamat"`
	Poskod            string `json:"poskod"`
	BandarDaerah      string `json:"bandar_daerah"`
	Negeri            string `json:"negeri"`
	TelefonBimbit     string `json:"telefon_bimbit"`
	TelefonRumah      string `json:"telefon_rumah"`
	Email             string `json:"email"`
	Pekerjaan         string `json:"pekerjaan"`
	PendapatanBulanan string `json:"pendapatan_bulanan"`
	StatusPerkahwinan string `json:"status_perkahwinan"`
	TarikhPerkahwinan string `json:"tarikh_perkahwinan"`
	NamaBank          string `json:"bank_nama_bank"`
	NoAkaunBank       string `json:"bank_no_akaun"`
}

// Spouse holds the MAKLUMAT PASANGAN field group. Zero value means the
// section was absent.
type Spouse struct {
	Nama        string `json:"nama"`
	NoMyKad     string `json:"no_mykad"`
	Telefon     string `json:"telefon"`
	Jantina     string `json:"jantina"`
	Pekerjaan   string `json:"pekerjaan"`
	NamaBank    string `json:"bank_nama_bank"`
	NoAkaunBank string `json:"bank_no_akaun"`
}

// Beneficiary holds the MAKLUMAT WARIS field group.
type Beneficiary struct {
	Hubungan     string `json:"hubungan"`
	NoPengenalan string `json:"no_pengenalan"`
	Nama         string `json:"nama"`
	Telefon      string `json:"telefon"`
}

// Dependent is one row of the MAKLUMAT ANAK table.
type Dependent struct {
	Nama    string `json:"nama"`
	NoMyKad string `json:"no_mykad"`
	Umur    string `json:"umur"`
	Status  string `json:"status"`
}

func (d Dependent) Empty() bool {
	return d.Nama == "" && d.NoMyKad == "" && d.Umur == "" && d.Status == ""
}

// DocumentInfo is the metadata footer group.
type DocumentInfo struct {
	Type        string `json:"type"`
	TarikhCetak string `json:"tarikh_cetak"`
}

// Record is the structured result of extracting one document. Dependents is a
// fixed-width ordered sequence so the output schema stays width-stable across
// records; empty slots stay zero-valued.
type Record struct {
	Applicant   Applicant                `json:"pemohon"`
	Spouse      Spouse                   `json:"pasangan"`
	Beneficiary Beneficiary              `json:"waris"`
	Dependents  [MaxDependents]Dependent `json:"anak"`
	Document    DocumentInfo             `json:"document"`
	SourceFile  string                   `json:"source_file"`
	Status      ExtractionStatus         `json:"status"`

	// StorageKey identifies the source file uniquely even when two files in
	// one batch share a name. Not part of the output schema.
	StorageKey string `json:"-"`
}

// FileOutcome is the tagged per-file result collected into a session: exactly
// one of Record or Err is set.
type FileOutcome struct {
	SourceFile string
	Record     *Record
	Err        string
}
