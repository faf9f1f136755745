package script

import "fmt"

// ParameterError reports parameters that cannot be turned into arguments.
type ParameterError struct {
	Parameters string
	Reason     string
	Err        error
}

func (e *ParameterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid parameters %q: %v", e.Parameters, e.Err)
	}

	return fmt.Sprintf("invalid parameters %q: %s", e.Parameters, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}
