// Package daemon implements the sysward inbox/outbox job processing service.
// Jobs arrive as JSON files in the inbox directory, run through the command
// pipeline, and results are written to the outbox directory.
package daemon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nkoval/sysward/internal/intent"
)

// validID matches alphanumeric characters, dashes, and underscores only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Job is a unit of work dropped into the inbox. Either Request (a natural
// language request, needs translation) or Command (an explicit candidate)
// must be set; Command wins when both are present.
type Job struct {
	ID        string            `json:"id"`
	Request   string            `json:"request,omitempty"`
	Command   *intent.Candidate `json:"command,omitempty"`
	Source    string            `json:"source,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Result is written to the outbox after processing a job.
type Result struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Message     string    `json:"message,omitempty"`
	Rule        string    `json:"rule,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Result status values.
const (
	ResultDone   = "done"
	ResultDenied = "denied"
	ResultFailed = "failed"
)

// ValidateJob checks that a job has all required fields and safe values.
func ValidateJob(j *Job) error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if strings.Contains(j.ID, "..") {
		return fmt.Errorf("job ID must not contain '..'")
	}
	if !validID.MatchString(j.ID) {
		return fmt.Errorf("job ID contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	if j.Request == "" && j.Command == nil {
		return fmt.Errorf("job needs a request or a command")
	}
	return nil
}
