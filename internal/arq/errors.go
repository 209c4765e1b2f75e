package arq

import "fmt"

// MaxRetriesExceededError is terminal for a session: the sender or
// receiver exhausted its retry budget for a single packet or round.
type MaxRetriesExceededError struct {
	Sequence uint32
	Tries    int
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("arq: max retries (%d) exceeded for sequence %d", e.Tries, e.Sequence)
}

// ProtocolViolationError reports an unexpected packet kind received
// during a phase that disallows it. Per spec.md §7 this is logged and
// discarded on the server, or aborts the client.
type ProtocolViolationError struct {
	Kind string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("arq: unexpected packet kind %s for current phase", e.Kind)
}
