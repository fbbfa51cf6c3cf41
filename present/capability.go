package present

import "github.com/cockroachdb/errors"

// Negotiate reports whether every required name appears verbatim in
// supported. An empty required list always succeeds. The same check is used
// for instance-scope and device-scope layers and extensions.
func Negotiate(required, supported []string) bool {
	for _, name := range required {
		if !contains(supported, name) {
			return false
		}
	}

	return true
}

func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}

	return false
}

// Missing returns the required names that are not in supported, in the
// order they were required.
func Missing(required, supported []string) []string {
	var missing []string
	for _, name := range required {
		if !contains(supported, name) {
			missing = append(missing, name)
		}
	}

	return missing
}

// RequireAll wraps ErrMissingCapability with the names that failed
// negotiation, or returns nil when they all passed. kind is used in the
// message only ("instance layer", "device extension", ...).
func RequireAll(kind string, required, supported []string) error {
	missing := Missing(required, supported)
	if len(missing) == 0 {
		return nil
	}

	return errors.Wrapf(ErrMissingCapability, "missing %s %v", kind, missing)
}
