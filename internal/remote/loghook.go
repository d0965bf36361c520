package remote

import (
	"github.com/sirupsen/logrus"

	"github.com/listinvest/quadro2/internal/config"
)

// logHook broadcasts every log entry over the remote link as an 'l'-tagged
// frame. Fire returns nil, so logrus keeps running its normal
// formatter/output chain after the hook fires and the original sink still
// receives every entry exactly as it would without this hook installed.
// Fire never logs itself: when the task's inbox is full the frame is
// dropped silently, so the hook cannot fire itself again. This only adds a
// broadcast; it never replaces the writer chain.
type logHook struct {
	task *Task
}

// NewLogHook returns a logrus.Hook that mirrors log entries onto task's
// remote link. Install it with logger.AddHook, alongside the logger's
// normal output, not instead of it.
func NewLogHook(task *Task) logrus.Hook {
	return &logHook{task: task}
}

func (h *logHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *logHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return nil
	}

	max := config.MessageSizeCap - 1 // leave room for the 'l' tag byte
	if len(line) > max {
		line = line[:max]
	}

	frame := make([]byte, 0, len(line)+1)
	frame = append(frame, 'l')
	frame = append(frame, line...)

	// Not Submit: its inbox-full warning would go through this same hook.
	select {
	case h.task.inbox <- Event{Kind: MessageSend, Payload: frame}:
	default:
	}
	return nil
}
