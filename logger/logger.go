package logger

// Logger is the structured logger used by every davlock component.
//
// Methods take a message followed by alternating key-value pairs:
// key1, val1, key2, val2, ... Keys must be strings; pairs with a
// non-string key or a missing value are dropped.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs at fatal level and terminates the process.
	Fatalw(msg string, keysAndValues ...any)

	// With returns a logger that adds the given pairs to every entry.
	With(keysAndValues ...any) Logger

	// WithComponent returns a logger tagged with component=name.
	WithComponent(name string) Logger
}
