package notifications

// Notifier delivers out-of-band alerts about trading session events.
type Notifier interface {
	// SendAlert sends an alert with the given level (info, success,
	// warning, error) and message.
	SendAlert(level, message string) error
}
