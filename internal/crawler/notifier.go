package crawler

// Notifier receives fire-and-forget progress events, one per
// committed page plus a completion event. The HTTP layer fans these
// out to connected operators; implementations must not block.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}
