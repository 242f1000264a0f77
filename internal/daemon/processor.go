package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nkoval/sysward/internal/intent"
	"github.com/nkoval/sysward/internal/pipeline"
)

// Translator converts natural language requests into command envelopes.
type Translator interface {
	Translate(ctx context.Context, request string) (*intent.Envelope, error)
}

// Processor handles job lifecycle transitions. A nil translator makes jobs
// carrying only a natural language request fail.
type Processor struct {
	dirs       DirConfig
	pipe       *pipeline.Pipeline
	translator Translator
}

// NewProcessor creates a processor around a pipeline.
func NewProcessor(dirs DirConfig, pipe *pipeline.Pipeline, translator Translator) *Processor {
	return &Processor{dirs: dirs, pipe: pipe, translator: translator}
}

// Process handles a single job file through its full lifecycle:
// read → validate → move to processing → run pipeline → write result to outbox.
func (p *Processor) Process(ctx context.Context, jobPath string) error {
	// Structural symlink defense: reject symlinks before reading. Without
	// this, a symlink to a valid JSON file elsewhere on the filesystem
	// would be processed as a legitimate job.
	fi, err := os.Lstat(jobPath)
	if err != nil {
		return fmt.Errorf("stat job file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(jobPath))
	}

	data, err := os.ReadFile(jobPath)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		_ = os.Remove(jobPath)
		return p.writeFailedResult(filepath.Base(jobPath), fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := ValidateJob(&job); err != nil {
		_ = os.Remove(jobPath)
		// The ID just failed validation; name the result after the job
		// file instead so a hostile ID cannot steer the outbox path.
		return p.writeFailedResult(filepath.Base(jobPath), fmt.Sprintf("validation failed: %v", err))
	}

	// Move to processing state. Uses moveFile to handle systemd bind mounts (EXDEV).
	processingPath := filepath.Join(p.dirs.ProcessingDir(), job.ID+".json")
	if err := moveFile(jobPath, processingPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	result := p.execute(ctx, &job)
	if err := p.writeResult(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	_ = os.Remove(processingPath)
	return nil
}

// execute runs the job through the command pipeline.
func (p *Processor) execute(ctx context.Context, job *Job) *Result {
	var res pipeline.Result
	switch {
	case job.Command != nil:
		res = p.pipe.RunCandidate(ctx, job.Request, *job.Command)
	case p.translator == nil:
		return &Result{
			ID:          job.ID,
			Status:      ResultFailed,
			Message:     "no translator configured for natural language jobs",
			CompletedAt: time.Now().UTC(),
		}
	default:
		env, err := p.translator.Translate(ctx, job.Request)
		if err != nil {
			return &Result{
				ID:          job.ID,
				Status:      ResultFailed,
				Message:     fmt.Sprintf("translation failed: %v", err),
				CompletedAt: time.Now().UTC(),
			}
		}
		res = p.pipe.Run(ctx, job.Request, env)
	}

	out := &Result{
		ID:          job.ID,
		Stage:       res.Stage,
		Message:     res.Message,
		CompletedAt: time.Now().UTC(),
	}
	switch {
	case res.Success:
		out.Status = ResultDone
	case res.Denied():
		out.Status = ResultDenied
		out.Rule = res.Verdict.MatchedRule
	default:
		out.Status = ResultFailed
	}
	return out
}

// writeResult writes a result to the outbox directory atomically.
func (p *Processor) writeResult(r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	filename := r.ID + ".json"
	tmpPath := filepath.Join(p.dirs.Outbox, filename+".tmp")
	finalPath := filepath.Join(p.dirs.Outbox, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

// writeFailedResult writes a minimal failed result when the job can't be
// parsed or validated. The id may come straight from a hostile inbox file,
// so it is reduced to a base name before it touches the outbox path.
func (p *Processor) writeFailedResult(id string, errMsg string) error {
	id = filepath.Base(id)
	if id == "" || id == "." || id == ".." || id == string(filepath.Separator) {
		id = fmt.Sprintf("unknown-%d", time.Now().UnixNano())
	}
	r := &Result{
		ID:          id,
		Status:      ResultFailed,
		Message:     errMsg,
		CompletedAt: time.Now().UTC(),
	}
	return p.writeResult(r)
}
