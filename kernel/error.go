package kernel

// Error describes a kernel error. All kernel errors are defined as package-level
// variables that are pointers to an Error instance. This requirement stems
// from the fact that the heap allocator is not always available (e.g. during
// early boot or while servicing an interrupt) so code cannot rely on
// errors.New or fmt.Errorf to construct error values on demand.
type Error struct {
	// Module is the name of the subsystem that generated the error.
	Module string

	// Message describes what went wrong.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
