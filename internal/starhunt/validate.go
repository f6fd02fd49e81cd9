package starhunt

import (
	"regexp"
	"strings"
)

var pinPattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,10}$`)

// ValidateRegistration checks a registration form and returns the trimmed
// team name. Uniqueness is checked by the store.
func ValidateRegistration(name, pin, confirmPin string) (string, error) {
	if pin != confirmPin {
		return "", &ValidationError{Message: "passwords do not match"}
	}
	if !pinPattern.MatchString(pin) {
		return "", &ValidationError{Message: "PIN must be 4-10 alphanumeric characters"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Message: "all fields are required"}
	}
	return name, nil
}
