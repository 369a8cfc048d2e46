// Package lifecycle defines shared shutdown vocabulary.
package lifecycle

// StopReason says why the app (or a component) is being stopped. It is
// logged and handed to components so they can tailor their shutdown.
type StopReason string

const (
	StopUnknown      StopReason = "unknown"
	StopSIGINT       StopReason = "sigint"
	StopSIGTERM      StopReason = "sigterm"
	StopFatalError   StopReason = "fatal_error"
	StopAppStop      StopReason = "app_stop"
	StopConfigReload StopReason = "config_reload"
)
