package register

import "fmt"

// RegistrationError reports which registrar step failed unexpectedly.
// Previously created artifacts are left as-is; there is no rollback.
type RegistrationError struct {
	Step string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration step %q failed: %v", e.Step, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
