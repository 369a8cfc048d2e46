package eventbus

// Event types published by stagehand components. Subscribers match on
// these; Data carries the component-specific payload.
const (
	// EventTimetableUpdated fires after every committed store update.
	// Data is timetable.ChangeEvent.
	EventTimetableUpdated = "timetable.updated"

	// EventReminderSent fires when a reminder reaches the notifier queue.
	EventReminderSent = "reminder.sent"

	// EventConfigApplied fires after a config reload round completes.
	EventConfigApplied = "config.applied"
)
