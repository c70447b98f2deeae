package task

// QueueStatus is a summary of the queue for polling clients.
type QueueStatus struct {
	QueueLength   int       `json:"queue_length"`
	IsProcessing  bool      `json:"is_processing"`
	ShouldStop    bool      `json:"should_stop"`
	CurrentTask   *TaskView `json:"current_task"`
	HistoryLength int       `json:"history_length"`
	Completed     int       `json:"completed"`
	Failed        int       `json:"failed"`
	Interrupted   int       `json:"interrupted"`
}

// DetailedQueueStatus carries every task in the queue.
type DetailedQueueStatus struct {
	Queue        []TaskView `json:"queue"`
	CurrentTask  *TaskView  `json:"current_task"`
	History      []TaskView `json:"history"`
	IsProcessing bool       `json:"is_processing"`
	ShouldStop   bool       `json:"should_stop"`
}

// Status returns counts and the current task. It has no side effects.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	status := QueueStatus{
		QueueLength:   len(q.pending),
		IsProcessing:  q.isProcessing,
		ShouldStop:    q.shouldStop,
		CurrentTask:   viewOf(q.current),
		HistoryLength: len(q.history),
	}
	for _, t := range q.history {
		switch t.Status() {
		case TaskStatusCompleted:
			status.Completed++
		case TaskStatusFailed:
			status.Failed++
		case TaskStatusInterrupted:
			status.Interrupted++
		}
	}
	return status
}

// DetailedStatus returns copies of every task. It has no side effects.
func (q *Queue) DetailedStatus() DetailedQueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	return DetailedQueueStatus{
		Queue:        viewsOf(q.pending),
		CurrentTask:  viewOf(q.current),
		History:      viewsOf(q.history),
		IsProcessing: q.isProcessing,
		ShouldStop:   q.shouldStop,
	}
}

func viewOf(t *Task) *TaskView {
	if t == nil {
		return nil
	}
	v := t.View()
	return &v
}

func viewsOf(tasks []*Task) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, t.View())
	}
	return views
}
