package notification

// Notifier is the event sink for one provisioning run: human-readable
// progress, operator-facing failures, and a single completion signal per
// successful run. UI collaborators supply their own implementation.
type Notifier interface {
	OnLog(message string)
	OnError(message string)
	OnComplete()
}
