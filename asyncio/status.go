package asyncio

// Status is the result of a non-blocking I/O operation.
type Status int

const (
	// InProgress means that the operation has not finished yet.  The
	// caller should poll again later.
	InProgress Status = iota
	// Error means that the operation failed.
	Error
	// Success means that the operation succeeded.
	Success
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case InProgress:
		return "in progress"
	case Error:
		return "error"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}
