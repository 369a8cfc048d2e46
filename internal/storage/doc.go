package storage

// Package storage persists the timetable and its operational side data.
//
// It currently supports:
//   - The timetable snapshot blob (single key, replaced atomically)
//   - Audit log appends (operator actions)
//   - Reminder dedup state (to survive restarts)
