package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/longregen/refinery/internal/domain/models"
)

// Entry is one recorded refinement run. Entries are appended to a JSONL
// file, one object per line.
type Entry struct {
	RunID         string          `json:"run_id"`
	Strategy      models.Strategy `json:"strategy"`
	Model         string          `json:"model"`
	SourcePrompt  string          `json:"source_prompt"`
	FinalPrompt   string          `json:"final_prompt"`
	IterationsRun int             `json:"iterations_run"`
	BestScore     *float64        `json:"best_score,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// EntryFromResult builds a history entry from a finished run.
func EntryFromResult(result *models.RefinementResult, sourcePrompt, model string) Entry {
	entry := Entry{
		RunID:         result.RunID,
		Strategy:      result.Strategy,
		Model:         model,
		SourcePrompt:  sourcePrompt,
		FinalPrompt:   result.FinalPrompt,
		IterationsRun: result.IterationsRun,
		StartedAt:     result.StartedAt,
		CompletedAt:   result.CompletedAt,
	}
	for _, te := range result.Trace {
		if te.Score == nil || te.Candidate.Text != result.FinalPrompt {
			continue
		}
		total := te.Score.Total()
		entry.BestScore = &total
	}
	return entry
}

// Log appends run entries to a JSONL file. Recording is best-effort
// bookkeeping: callers treat failures as warnings, never as run failures.
type Log struct {
	path string
}

// NewLog creates a log writing to path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Record appends entry to the log file, creating it if needed.
func (l *Log) Record(entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// Load returns the most recent entries, newest last. limit <= 0 means all.
// Unparseable lines are skipped; a history file damaged in one place still
// yields every intact entry.
func (l *Log) Load(limit int) ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
