package recovery

import "fmt"

// userMessages maps a kind to the message shown to the end user. Derived
// from (kind, step); the technical detail never leaks into this channel.
var userMessages = map[Kind]string{
	KindValidation:    "The generated result did not pass quality checks during %s.",
	KindAPI:           "The generation service had a problem during %s.",
	KindRateLimit:     "The generation service is busy; %s will be retried shortly.",
	KindTimeout:       "The %s step took too long and was stopped.",
	KindNetwork:       "A network problem interrupted %s.",
	KindParsing:       "The response from %s could not be understood.",
	KindFileSystem:    "Files needed by %s could not be read or written.",
	KindQuotaExceeded: "Your generation quota is exhausted; %s cannot continue.",
	KindUnknown:       "An unexpected problem occurred during %s.",
}

func userMessage(kind Kind, step string) string {
	if step == "" {
		step = "generation"
	}
	template, ok := userMessages[kind]
	if !ok {
		template = userMessages[KindUnknown]
	}
	return fmt.Sprintf(template, step)
}

func technicalDetail(err error, errCtx Context) string {
	detail := fmt.Sprintf("step=%s attempt=%d/%d", errCtx.Step, errCtx.Attempt, errCtx.MaxAttempts)
	if errCtx.SessionID != "" {
		detail += " session=" + errCtx.SessionID
	}
	if errCtx.DurationMs > 0 {
		detail += fmt.Sprintf(" duration_ms=%d", errCtx.DurationMs)
	}
	for k, v := range errCtx.Extra {
		detail += fmt.Sprintf(" %s=%s", k, v)
	}
	if err != nil {
		detail += ": " + err.Error()
	}
	return detail
}
