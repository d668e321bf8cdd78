package denorm

// TimeLayout is the timestamp format carried in every document, matching the
// microsecond ISO format the upstream CI service uses.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Job is one denormalized CI job document.
type Job struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	State      string         `json:"state"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	TopicID    string         `json:"topic_id"`
	RemoteCIID string         `json:"remoteci_id"`
	TeamID     string         `json:"team_id"`
	ProductID  string         `json:"product_id"`
	PipelineID string         `json:"pipeline_id,omitempty"`
	Tags       []string       `json:"tags"`
	Pipeline   *Pipeline      `json:"pipeline,omitempty"`
	Jobstates  []*Jobstate    `json:"jobstates"`
	Components []*Component   `json:"components"`
	Results    []*TestsResult `json:"results"`
}

// Pipeline is the pipeline a job belongs to, if any.
type Pipeline struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Jobstate is one state transition of a job, carrying file attachments.
type Jobstate struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	JobID     string  `json:"job_id"`
	Files     []*File `json:"files"`
}

// File is a file attachment reference.
type File struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Mime       string `json:"mime"`
	Size       int64  `json:"size"`
	CreatedAt  string `json:"created_at"`
	JobstateID string `json:"jobstate_id"`
}

// Component is a build input exercised by a job.
type Component struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	CanonicalProjectName string   `json:"canonical_project_name"`
	Type                 string   `json:"type"`
	Tags                 []string `json:"tags"`
	TeamID               string   `json:"team_id"`
	TopicID              string   `json:"topic_id"`
	CreatedAt            string   `json:"created_at"`
	ReleasedAt           string   `json:"released_at"`
}

// TestsResult is an aggregated test-result summary attached to a job.
type TestsResult struct {
	ID        string `json:"id"`
	Success   int    `json:"success"`
	Failures  int    `json:"failures"`
	Errors    int    `json:"errors"`
	Skips     int    `json:"skips"`
	Total     int    `json:"total"`
	CreatedAt string `json:"created_at"`
}
