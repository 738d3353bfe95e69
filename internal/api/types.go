package api

// JobSnapshot describes a job in a transport-friendly format.
type JobSnapshot struct {
	ID               int64             `json:"id"`
	Topic            string            `json:"topic"`
	Platform         string            `json:"platform"`
	Style            string            `json:"style"`
	DurationSeconds  int               `json:"durationSeconds"`
	Transition       string            `json:"transition"`
	CaptionStyle     string            `json:"captionStyle"`
	UseStored        bool              `json:"useStored"`
	Status           string            `json:"status"`
	Progress         JobProgress       `json:"progress"`
	ErrorMessage     string            `json:"errorMessage,omitempty"`
	OutputFile       string            `json:"outputFile,omitempty"`
	CancelRequested  bool              `json:"cancelRequested,omitempty"`
	StageTimes       map[string]string `json:"stageTimes,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty"`
	UpdatedAt        string            `json:"updatedAt,omitempty"`
}

// JobProgress captures stage progress for a job.
type JobProgress struct {
	Stage    string  `json:"stage"`
	Percent  float64 `json:"percent"`
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}

// SubmitRequest is the inbound payload for new generation jobs.
type SubmitRequest struct {
	Topic           string `json:"topic"`
	Platform        string `json:"platform"`
	Style           string `json:"style"`
	DurationSeconds int    `json:"durationSeconds"`
	Transition      string `json:"transition"`
	CaptionStyle    string `json:"captionStyle"`
	Voice           string `json:"voice"`
	UseStored       bool   `json:"useStored"`
}

// SubmitResponse returns the identifier of an accepted job.
type SubmitResponse struct {
	JobID int64 `json:"jobId"`
}

// CancelResponse reports the outcome of a cancellation request.
type CancelResponse struct {
	Outcome string `json:"outcome"`
}

// ResultState classifies the outcome of a result lookup.
type ResultState string

const (
	ResultReady    ResultState = "ready"
	ResultNotReady ResultState = "not_ready"
	ResultFailed   ResultState = "failed"
)

// ResultResponse carries the finished artifact path or the reason it is
// unavailable.
type ResultResponse struct {
	State      ResultState `json:"state"`
	OutputFile string      `json:"outputFile,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes pipeline execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// JobListResponse wraps a collection of job snapshots.
type JobListResponse struct {
	Jobs []JobSnapshot `json:"jobs"`
}
