package audit

// Stage names the pipeline stage an entry was recorded at.
const (
	StageSchema    = "schema"
	StagePolicy    = "policy"
	StageExecution = "execution"
	StageUpstream  = "upstream"
)

// Entry is one line in the hash-chained JSONL audit log. All fields are
// plain values (no maps) so json.Marshal field order is deterministic and
// hashing is reproducible.
type Entry struct {
	Timestamp string `json:"ts"`
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"`
	Action    string `json:"action,omitempty"`
	Target    string `json:"target,omitempty"`
	Decision  string `json:"decision"`
	Rule      string `json:"rule,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ExitCode  int    `json:"exit_code,omitempty"`
	PrevHash  string `json:"prev_hash"`
}
