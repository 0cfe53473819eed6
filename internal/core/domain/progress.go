package domain

type ProgressStatus string

const (
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

type ItemStatus string

const (
	ItemProcessing ItemStatus = "processing"
	ItemSuccess    ItemStatus = "success"
	ItemError      ItemStatus = "error"
)

// ProgressSnapshot is one progress update as pushed to subscribers. Optional
// fields are omitted from the wire payload when unset.
type ProgressSnapshot struct {
	Current      int            `json:"current"`
	Total        int            `json:"total"`
	Status       ProgressStatus `json:"status"`
	Message      string         `json:"message"`
	ItemStatus   ItemStatus     `json:"item_status,omitempty"`
	ElapsedTime  float64        `json:"elapsed_time,omitempty"`
	SuccessCount *int           `json:"success_count,omitempty"`
	FailedCount  *int           `json:"failed_count,omitempty"`
	FailedFiles  []Failure      `json:"failed_files,omitempty"`
}

// Terminal reports whether no further per-item progress follows this
// snapshot.
func (p ProgressSnapshot) Terminal() bool {
	return p.Status == ProgressCompleted || p.Status == ProgressError
}

func IntPtr(n int) *int { return &n }
