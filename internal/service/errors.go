package service

import (
	"errors"
	"time"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuth
	KindInvalidToken
	KindForbidden
	KindNotFound
	KindConflict
	KindExists
	KindStale
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindInvalidToken:
		return "invalid_token"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExists:
		return "exists"
	case KindStale:
		return "stale"
	default:
		return "internal"
	}
}

// Error is the single tagged error every service operation returns. Message
// is safe to show to callers; Err carries the underlying cause, if any.
type Error struct {
	Kind       ErrorKind
	Message    string
	Code       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf reports the kind of err, treating untagged errors as internal.
func KindOf(err error) ErrorKind {
	if se, ok := AsError(err); ok {
		return se.Kind
	}
	return KindInternal
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: MsgInternal, Err: err}
}

const MsgInternal = "Internal server error"

// Membership messages.
const (
	MsgGroupFieldsRequired   = "Group name, type, and maxMembers are required."
	MsgGroupTypeInvalid      = "Group type must be either 'open' or 'private'."
	MsgMaxMembersInvalid     = "Maximum members must be an integer of at least 2."
	MsgGroupNameTooLong      = "Group name must be at most 100 characters."
	MsgGroupNotFound         = "Group not found."
	MsgBanned                = "You are banned from this group. Submit a new join request for approval."
	MsgAlreadyMember         = "Already a member of this group."
	MsgGroupFull             = "Group has reached maximum capacity."
	MsgRejoinCooldown        = "You left this group recently. Please wait 48 hours before rejoining."
	MsgRequestExists         = "Join request already submitted."
	MsgOnlyOwnerApprove      = "Only the group owner can approve join requests."
	MsgRequestNotFound       = "Join request not found."
	MsgOwnerMustTransfer     = "Owner must transfer ownership before leaving the group."
	MsgNotMember             = "You are not a member of this group."
	MsgOnlyOwnerBanish       = "Only the group owner can banish members."
	MsgOwnerCannotBanishSelf = "Owner cannot banish themselves."
	MsgUserIDRequired        = "User ID is required."
	MsgOnlyOwnerTransfer     = "Only the group owner can transfer ownership."
	MsgNewOwnerNotMember     = "New owner must be a current member of the group."
	MsgOnlyOwnerDelete       = "Only the group owner can delete the group."
	MsgGroupNotEmpty         = "Group cannot be deleted unless owner is the sole member."
	MsgStaleGroup            = "Group was modified by another request. Please retry."

	MsgGroupCreated     = "Group created successfully."
	MsgJoinedOpen       = "Joined open group successfully."
	MsgRequestSubmitted = "Join request submitted. Await approval from the group owner."
	MsgUserAdded        = "User added to group."
	MsgLeftGroup        = "Left group successfully."
	MsgUserBanished     = "User banished from group."
	MsgOwnerTransferred = "Ownership transferred successfully."
	MsgGroupDeleted     = "Group deleted successfully."
)

// Messaging messages.
const (
	MsgContentRequired   = "Message content is required."
	MsgContentTooLong    = "Message content is too long."
	MsgNotAuthorizedView = "You are not authorized to view these messages."
	MsgMessageSent       = "Message sent successfully."
)

// Auth messages.
const (
	MsgInvalidEmail        = "Invalid email address"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
	MsgCredentialsRequired = "Email and password are required."
	MsgEmailInUse          = "Email already in use."
	MsgInvalidCredentials  = "Invalid credentials."
	MsgUserRegistered      = "User registered successfully."
	MsgNoToken             = "Access denied. No token provided."
	MsgInvalidToken        = "Invalid token."
)
