// Package record defines the Record value type: the canonical description
// of one download, keyed by its destination path.
package record

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusPending    Status = "pending"
	StatusIdle       Status = "idle"
	StatusInProgress Status = "inProgress"
	StatusPaused     Status = "paused"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

// Record describes one download. Path is its primary key.
//
// Record is a pure value type: every transition below returns a new
// Record rather than mutating the receiver. Persistence is the caller's
// (the Engine's) responsibility.
type Record struct {
	URL      string  `json:"url"`
	Path     string  `json:"path"`
	Progress float64 `json:"progress"`
	Status   Status  `json:"status"`

	// ResumeHint is an optional opaque token (a resume-data blob file name)
	// enabling efficient resume. When empty, resume falls back to an
	// HTTP Range request against the partial file.
	ResumeHint string `json:"resumeDataPath,omitempty"`
}

// New creates an Idle Record for a freshly created download.
func New(path, url string) Record {
	return Record{URL: url, Path: path, Progress: 0, Status: StatusIdle}
}

// Pending returns the synthetic Record returned by Engine.get for an
// unknown path. It is never persisted.
func Pending(path string) Record {
	return Record{URL: "", Path: path, Progress: 0, Status: StatusPending}
}

// WithProgress returns a copy with Progress set and Status forced to
// InProgress.
func (r Record) WithProgress(p float64) Record {
	r.Progress = p
	r.Status = StatusInProgress
	return r
}

// WithStatus returns a copy with Status set. Transitioning to Completed
// forces Progress to 100.
func (r Record) WithStatus(s Status) Record {
	r.Status = s
	if s == StatusCompleted {
		r.Progress = 100.0
	}
	return r
}

// WithResumeHint returns a copy with ResumeHint set.
func (r Record) WithResumeHint(hint string) Record {
	r.ResumeHint = hint
	return r
}

// Persistable reports whether a Record belongs on disk. Pending,
// Cancelled, and Completed never are (spec invariant 2).
func (r Record) Persistable() bool {
	switch r.Status {
	case StatusIdle, StatusInProgress, StatusPaused:
		return true
	default:
		return false
	}
}
