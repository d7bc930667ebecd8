package syncengine

// Notifier receives point-in-time, non-blocking user notifications from the
// sync engine, such as terminal delivery failures. Implementations must not
// block; the processor calls them from its drain loop.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) { f(message) }

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}
