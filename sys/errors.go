package sys

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCommandNotFound  = errors.New("command not found")
	ErrCheckFailure     = errors.New("check failure")
	ErrNoPrivateMessage = errors.New("command cannot be used in private messages")
	ErrViewClosed       = errors.New("view is closed")
	ErrNotReady         = errors.New("client is not ready")
)

// DisabledCommandError is returned when a disabled prefix command is invoked.
type DisabledCommandError struct {
	Name string
}

func (e *DisabledCommandError) Error() string {
	return fmt.Sprintf("%s command is disabled", e.Name)
}

// MissingArgumentError reports a required parameter that was not supplied.
type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s is a required argument that is missing.", e.Param)
}

// BadArgumentError reports a parameter that could not be converted.
type BadArgumentError struct {
	Param string
	Value string
	Err   error
}

func (e *BadArgumentError) Error() string {
	return fmt.Sprintf("converting %q for %s failed: %v", e.Value, e.Param, e.Err)
}

func (e *BadArgumentError) Unwrap() error { return e.Err }

// CommandOnCooldownError carries the remaining wait for a cooldown denial.
type CommandOnCooldownError struct {
	RetryAfter time.Duration
}

func (e *CommandOnCooldownError) Error() string {
	return CooldownMessage(e.RetryAfter)
}

// MissingRoleError is returned when the actor holds none of the required roles.
type MissingRoleError struct {
	Roles []string
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("missing role(s): %s", strings.Join(e.Roles, ", "))
}

// Is makes a missing role count as a check failure.
func (e *MissingRoleError) Is(target error) bool { return target == ErrCheckFailure }

type ExtensionErrorKind int

const (
	ExtensionNotFound ExtensionErrorKind = iota
	ExtensionAlreadyLoaded
	ExtensionNotLoaded
	ExtensionFailed
)

func (k ExtensionErrorKind) String() string {
	switch k {
	case ExtensionNotFound:
		return "ExtensionNotFound"
	case ExtensionAlreadyLoaded:
		return "ExtensionAlreadyLoaded"
	case ExtensionNotLoaded:
		return "ExtensionNotLoaded"
	default:
		return "ExtensionFailed"
	}
}

// ExtensionError describes a failed load, unload or reload.
type ExtensionError struct {
	Kind ExtensionErrorKind
	Name string
	Err  error
}

func (e *ExtensionError) Error() string {
	switch e.Kind {
	case ExtensionNotFound:
		return fmt.Sprintf("Extension '%s' could not be found.", e.Name)
	case ExtensionAlreadyLoaded:
		return fmt.Sprintf("Extension '%s' is already loaded.", e.Name)
	case ExtensionNotLoaded:
		return fmt.Sprintf("Extension '%s' has not been loaded.", e.Name)
	default:
		return fmt.Sprintf("Extension '%s' raised an error: %v", e.Name, e.Err)
	}
}

func (e *ExtensionError) Unwrap() error { return e.Err }

// User-facing replies
const (
	MsgPrefixDisabled        = "Command `%s` has been disabled."
	MsgPrefixNoPrivate       = "Command `%s` cannot be used in private messages."
	MsgPrefixMissingArgument = "Command `%s` failed to process, %v"
	MsgPrefixUsage           = "Usage: `%s`"
	MsgPrefixGeneric         = "Something went wrong while processing `%s`."

	MsgInteractionDisabled    = "This command is temporarily disabled."
	MsgInteractionMissingRole = "You are missing the required role(s) to run this command"
	MsgInteractionCheckFailed = "A check has failed, possible causes for this could be:\n" +
		"- You do not have the required role(s)\n" +
		"- You do not have the required permissions\n" +
		"- The command is disabled\n" +
		"- You are banned from using commands"
	MsgInteractionGeneric  = "Something went wrong while processing this interaction."
	MsgInteractionNotReady = "The bot is still starting up, try again in a moment."

	MsgCooldown  = "You are on cooldown. Try again in %.2fs"
	MsgNotAuthor = "You're not the author of that interaction, please use the command yourself to use buttons."
)

// CooldownMessage renders the remaining wait with two decimals.
func CooldownMessage(d time.Duration) string {
	return fmt.Sprintf(MsgCooldown, d.Seconds())
}

// PrefixErrorReply maps a prefix-command failure to the reply sent to the
// channel. ok is false when the failure is silently ignored. logged reports
// whether the failure is unexpected and should be logged.
func PrefixErrorReply(command string, err error) (reply string, ok bool, logged bool) {
	var (
		disabled *DisabledCommandError
		missing  *MissingArgumentError
	)
	switch {
	case err == nil:
		return "", false, false
	case errors.Is(err, ErrCommandNotFound), errors.Is(err, ErrCheckFailure):
		return "", false, false
	case errors.As(err, &disabled):
		return fmt.Sprintf(MsgPrefixDisabled, command), true, false
	case errors.Is(err, ErrNoPrivateMessage):
		return fmt.Sprintf(MsgPrefixNoPrivate, command), true, false
	case errors.As(err, &missing):
		return fmt.Sprintf(MsgPrefixMissingArgument, command, missing), true, false
	default:
		return fmt.Sprintf(MsgPrefixGeneric, command), true, true
	}
}

// InteractionErrorReply maps an application command failure to the
// ephemeral reply. logged reports whether the failure should be logged.
func InteractionErrorReply(err error) (reply string, logged bool) {
	var (
		cooldown *CommandOnCooldownError
		role     *MissingRoleError
	)
	switch {
	case errors.Is(err, ErrCommandNotFound):
		return MsgInteractionDisabled, false
	case errors.As(err, &cooldown):
		return cooldown.Error(), false
	case errors.As(err, &role):
		return MsgInteractionMissingRole, false
	case errors.Is(err, ErrCheckFailure), errors.Is(err, ErrNoPrivateMessage):
		return MsgInteractionCheckFailed, false
	case errors.Is(err, ErrNotReady):
		return MsgInteractionNotReady, false
	default:
		return MsgInteractionGeneric, true
	}
}
