package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrUserIDInvalid = errors.New("user id invalid")

// ValidateUserID checks that a user id has the form "region:uuid", that the
// region matches the deployment and that the uuid is in RFC 4122 textual form.
func ValidateUserID(region, userID string) error {
	prefix, id, ok := strings.Cut(userID, ":")
	if !ok || strings.Contains(id, ":") {
		return fmt.Errorf("%w: %q is not region:uuid", ErrUserIDInvalid, userID)
	}
	if prefix != region {
		return fmt.Errorf("%w: %q has wrong region, want %v", ErrUserIDInvalid, userID, region)
	}
	// uuid.Parse also accepts urn and braced forms; only the 36 character form is allowed
	if len(id) != 36 {
		return fmt.Errorf("%w: %q is not a uuid", ErrUserIDInvalid, userID)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q is not a uuid: %v", ErrUserIDInvalid, userID, err)
	}
	return nil
}
