package session

import "fmt"

// RemoteFileNotFoundError is returned by a download when the server
// answers an INIT request with FIN instead of ACK: the requested file
// does not exist in its storage directory.
type RemoteFileNotFoundError struct {
	Name string
}

func (e *RemoteFileNotFoundError) Error() string {
	return fmt.Sprintf("session: remote file not found: %s", e.Name)
}

// UploadRejectedError is returned by an upload when the server answers
// the INIT request with FIN instead of ACK: per spec.md §4.5 this means
// the server declined to accept the file (e.g. its storage directory
// rejected the write), not that anything is missing on the remote side.
type UploadRejectedError struct {
	Name string
}

func (e *UploadRejectedError) Error() string {
	return fmt.Sprintf("session: server rejected upload: %s", e.Name)
}

// HandshakeError reports a failure to establish a session within the
// retry budget: the peer never answered INIT with ACK or FIN.
type HandshakeError struct {
	Tries int
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("session: handshake abandoned after %d attempts", e.Tries)
}
