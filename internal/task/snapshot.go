package task

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// SnapshotVersion is the schema version written by this package.
// Snapshots without a version field predate versioning and load as version 0.
const SnapshotVersion = 1

// Snapshot is the serialized form of a Queue.
type Snapshot struct {
	Version      int          `json:"version"`
	IsProcessing bool         `json:"is_processing"`
	ShouldStop   bool         `json:"should_stop"`
	Queue        []TaskRecord `json:"queue"`
	CurrentTask  *TaskRecord  `json:"current_task"`
	History      []TaskRecord `json:"history"`
	SavedAt      float64      `json:"saved_at"`
}

// TaskRecord is the serialized form of a Task. Timestamps are epoch seconds.
type TaskRecord struct {
	ImagePath   string     `json:"image_path"`
	Status      TaskStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Error       *string    `json:"error"`
	Result      Result     `json:"result,omitempty"`
	CreatedAt   *float64   `json:"created_at"`
	StartedAt   *float64   `json:"started_at"`
	CompletedAt *float64   `json:"completed_at"`
}

var errInvalidRecord = errors.New("invalid task record")

// NewSnapshot captures the full state of q. The queue lock is held for the
// whole capture, so the snapshot is consistent with a single point in time.
func NewSnapshot(q *Queue, savedAt time.Time) *Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := &Snapshot{
		Version:      SnapshotVersion,
		IsProcessing: q.isProcessing,
		ShouldStop:   q.shouldStop,
		Queue:        recordsOf(q.pending),
		History:      recordsOf(q.history),
		SavedAt:      toEpoch(savedAt),
	}
	if q.current != nil {
		rec := recordOf(q.current.View())
		s.CurrentTask = &rec
	}
	return s
}

// Restore rebuilds a Queue from the snapshot, applying crash recovery:
// the processing flags are reset, a current task that was processing is
// interrupted and appended to history, and any other current task is put
// back at the front of the pending list. Malformed records are skipped.
func (s *Snapshot) Restore(logger *slog.Logger) (*Queue, error) {
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, s.Version)
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := NewQueue(WithLogger(logger))
	q.pending = restoreAll(s.Queue, "queue", logger)
	q.history = restoreAll(s.History, "history", logger)

	if s.CurrentTask != nil {
		t, err := restoreTask(*s.CurrentTask)
		switch {
		case err != nil:
			logger.Warn("skipping invalid current task record", "error", err)
		case t.status == TaskStatusProcessing:
			_ = t.Interrupt()
			q.history = append(q.history, t)
			logger.Info("interrupted task recovered into history",
				"image_path", t.imagePath)
		default:
			q.pending = append([]*Task{t}, q.pending...)
			logger.Info("unfinished current task requeued at front",
				"image_path", t.imagePath,
				"status", t.status)
		}
	}

	q.isProcessing = false
	q.shouldStop = false
	return q, nil
}

func restoreAll(records []TaskRecord, list string, logger *slog.Logger) []*Task {
	tasks := make([]*Task, 0, len(records))
	for i, rec := range records {
		t, err := restoreTask(rec)
		if err != nil {
			logger.Warn("skipping invalid task record",
				"list", list,
				"index", i,
				"error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func restoreTask(rec TaskRecord) (*Task, error) {
	if rec.ImagePath == "" {
		return nil, fmt.Errorf("%w: empty image path", errInvalidRecord)
	}
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q for %s", errInvalidRecord, rec.Status, rec.ImagePath)
	}

	t := &Task{
		imagePath:   rec.ImagePath,
		status:      rec.Status,
		progress:    clampProgress(rec.Progress),
		result:      rec.Result,
		startedAt:   fromEpochPtr(rec.StartedAt),
		completedAt: fromEpochPtr(rec.CompletedAt),
		now:         time.Now,
	}
	if rec.Error != nil {
		t.err = *rec.Error
	}
	if rec.CreatedAt != nil {
		t.createdAt = fromEpoch(*rec.CreatedAt)
	}
	return t, nil
}

func recordsOf(tasks []*Task) []TaskRecord {
	records := make([]TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, recordOf(t.View()))
	}
	return records
}

func recordOf(v TaskView) TaskRecord {
	rec := TaskRecord{
		ImagePath:   v.ImagePath,
		Status:      v.Status,
		Progress:    v.Progress,
		Result:      v.Result,
		StartedAt:   toEpochPtr(v.StartedAt),
		CompletedAt: toEpochPtr(v.CompletedAt),
	}
	if v.Error != "" {
		msg := v.Error
		rec.Error = &msg
	}
	if !v.CreatedAt.IsZero() {
		created := toEpoch(v.CreatedAt)
		rec.CreatedAt = &created
	}
	return rec
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpoch(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}

func toEpochPtr(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	secs := toEpoch(*t)
	return &secs
}

func fromEpochPtr(secs *float64) *time.Time {
	if secs == nil {
		return nil
	}
	t := fromEpoch(*secs)
	return &t
}
