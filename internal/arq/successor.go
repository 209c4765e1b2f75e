package arq

import "arqftp/internal/config"

// Successor returns the next sequence number after seq for the given mode.
// Stop-and-Wait flips a 1-bit counter; Selective Repeat increments a
// monotonic counter wide enough to never wrap within a single transfer.
// This is the single parameterisation DESIGN NOTES §9 asks for instead of
// two hand-duplicated send/receive loops.
func Successor(mode config.Mode, seq uint32) uint32 {
	if mode == config.StopAndWait {
		return seq ^ 1
	}
	return seq + 1
}

// compareResult classifies an incoming DATA sequence relative to the
// receiver's expected next sequence.
type compareResult int

const (
	cmpDuplicate compareResult = iota - 1
	cmpExpected
	cmpFuture
)

// compare classifies seq against expected for the given mode.
//
// Selective Repeat sequence numbers are monotonic and never wrap, so a
// literal numeric comparison is correct. Stop-and-Wait's 1-bit counter
// has no "future" case (the window is 1): anything that isn't the
// expected bit is, by elimination, a retransmitted duplicate of the
// packet already delivered.
func compare(mode config.Mode, seq, expected uint32) compareResult {
	if mode == config.StopAndWait {
		if seq == expected {
			return cmpExpected
		}
		return cmpDuplicate
	}
	switch {
	case seq == expected:
		return cmpExpected
	case seq < expected:
		return cmpDuplicate
	default:
		return cmpFuture
	}
}
