package studiahub

import "time"

// Level classifies a notification for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a dismissible user-facing message with a category title
// and a suggested display duration.
type Notification struct {
	Title    string
	Message  string
	Level    Level
	Duration time.Duration
}

// Notifier receives user-facing notifications emitted by upload sessions and
// quiz orchestrators.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Notification category titles.
const (
	titleFileTooLarge   = "File Too Large"
	titleUsageLimit     = "Usage Limit Exceeded"
	titleUploadFailed   = "Upload Failed"
	titleProcessFailed  = "Processing Failed"
	titleQuizFailed     = "Quiz Generation Failed"
	titleUploadComplete = "Upload Complete"
)

const (
	errorNotificationDuration   = 8 * time.Second
	successNotificationDuration = 5 * time.Second
)

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
