package plan

import (
	"log"
	"time"
)

// Level classifies a notice shown to the operator.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-facing message, typically rendered as a toast.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives validation rejections and other operator feedback.
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier writes notices to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	log.Printf("[plan] %s: %s", n.Level, n.Message)
}

// RecordingNotifier keeps the most recent notices in memory and forwards
// each one to Next when set.
type RecordingNotifier struct {
	Next  Notifier
	Limit int

	notices []Notice
}

// NewRecordingNotifier keeps up to limit notices.
func NewRecordingNotifier(limit int, next Notifier) *RecordingNotifier {
	return &RecordingNotifier{Next: next, Limit: limit}
}

func (r *RecordingNotifier) Notify(n Notice) {
	r.notices = append(r.notices, n)
	if r.Limit > 0 && len(r.notices) > r.Limit {
		r.notices = r.notices[len(r.notices)-r.Limit:]
	}
	if r.Next != nil {
		r.Next.Notify(n)
	}
}

// Notices returns a copy of the recorded notices, oldest first.
func (r *RecordingNotifier) Notices() []Notice {
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *RecordingNotifier) Last() (Notice, bool) {
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
