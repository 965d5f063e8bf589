package airmon

import "fmt"

// TransportError reports a failed bus or serial operation. Callers decide
// whether to retry; drivers never retry on their own. Reg is only
// meaningful when HasReg is set.
type TransportError struct {
	Op     string
	Reg    byte
	HasReg bool
	Err    error
}

func (e *TransportError) Error() string {
	if !e.HasReg {
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s (reg %#02x): %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
