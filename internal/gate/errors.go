package gate

import (
	"fmt"
	"time"
)

// ErrorLocation tags where a command's own error surfaced, so a failure in
// a pre-run check stays distinguishable from one in the command body.
type ErrorLocation int

const (
	LocationBody ErrorLocation = iota
	LocationCheck
)

func (l ErrorLocation) String() string {
	switch l {
	case LocationCheck:
		return "check"
	default:
		return "body"
	}
}

// NotAnOwnerError denies an owners-only command to a non-owner.
type NotAnOwnerError struct{}

func (*NotAnOwnerError) Error() string {
	return "command is restricted to bot owners"
}

// MissingUserPermissionsError denies an invocation because the invoking
// user lacks required permissions. Known is false when the user's
// permissions could not be resolved at all; Missing is only meaningful
// when Known is true.
type MissingUserPermissionsError struct {
	Missing PermissionSet
	Known   bool
}

func (e *MissingUserPermissionsError) Error() string {
	if !e.Known {
		return "user permissions could not be resolved"
	}
	return fmt.Sprintf("user is missing required permissions (0x%x)", int64(e.Missing))
}

// MissingBotPermissionsError denies an invocation because the bot itself is
// confirmed to lack permissions. Missing is always a concrete set; an
// unknown bot permission state never produces this error.
type MissingBotPermissionsError struct {
	Missing PermissionSet
}

func (e *MissingBotPermissionsError) Error() string {
	return fmt.Sprintf("bot is missing required permissions (0x%x)", int64(e.Missing))
}

// CheckFailedError denies an invocation because a custom check returned false.
type CheckFailedError struct{}

func (*CheckFailedError) Error() string {
	return "command check failed"
}

// CommandError wraps an error raised by command-owned code, tagged with
// where it happened.
type CommandError struct {
	Err      error
	Location ErrorLocation
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command error in %s: %v", e.Location, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CooldownError denies an invocation made within a cooldown window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command is on cooldown for another %s", e.Remaining)
}
