package consoles

type Console interface {
	Printf(format string, a ...any)
	Debugf(format string, a ...any)

	// Prepare formats a line the way Printf would, without writing it.
	Prepare(format string, a ...any) string

	PushPrefix(format string, a ...any)
	PopPrefix()

	Verbose() bool
}
