package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindResolution Kind = "resolution"
	KindForbidden  Kind = "forbidden"
)

type Reason string

const (
	ReasonInvalidName            Reason = "invalid_name"
	ReasonInvalidTag             Reason = "invalid_tag"
	ReasonInvalidAction          Reason = "invalid_action"
	ReasonInvalidServer          Reason = "invalid_server"
	ReasonInvalidPageToken       Reason = "invalid_page_token"
	ReasonInsufficientMembers    Reason = "insufficient_members"
	ReasonTooFew                 Reason = "too_few_members"
	ReasonTooMany                Reason = "too_many_members"
	ReasonAlreadyInClan          Reason = "already_in_clan"
	ReasonDuplicateName          Reason = "duplicate_name"
	ReasonDuplicateTag           Reason = "duplicate_tag"
	ReasonConcurrentModification Reason = "concurrent_modification"
	ReasonCallerNotInClan        Reason = "caller_not_in_clan"
	ReasonUnresolved             Reason = "unresolved_member"
	ReasonLeaderProtected        Reason = "leader_protected"
	ReasonNotAdmin               Reason = "not_admin"
	ReasonInvalidState           Reason = "invalid_state"
)

// Error is a deterministic, user-reportable failure. Errors compare equal under
// errors.Is when kind and reason match, so payload-carrying errors still match
// the sentinels below.
type Error struct {
	Kind     Kind
	Reason   Reason
	Ref      string
	Rejected []Rejection
}

func (e *Error) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Reason, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Code() string {
	return string(e.Reason)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func ValidationError(reason Reason, rejected []Rejection) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Rejected: rejected}
}

func ConflictError(reason Reason) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func NotFoundError(reason Reason) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func ResolutionError(ref string) *Error {
	return &Error{Kind: KindResolution, Reason: ReasonUnresolved, Ref: ref}
}

func ForbiddenError(reason Reason) *Error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

var (
	ErrInvalidName            = ValidationError(ReasonInvalidName, nil)
	ErrInvalidTag             = ValidationError(ReasonInvalidTag, nil)
	ErrInvalidAction          = ValidationError(ReasonInvalidAction, nil)
	ErrInvalidServer          = ValidationError(ReasonInvalidServer, nil)
	ErrInvalidPageToken       = ValidationError(ReasonInvalidPageToken, nil)
	ErrInsufficientMembers    = ValidationError(ReasonInsufficientMembers, nil)
	ErrTooFew                 = ValidationError(ReasonTooFew, nil)
	ErrTooMany                = ValidationError(ReasonTooMany, nil)
	ErrAlreadyInClan          = ConflictError(ReasonAlreadyInClan)
	ErrDuplicateName          = ConflictError(ReasonDuplicateName)
	ErrDuplicateTag           = ConflictError(ReasonDuplicateTag)
	ErrConcurrentModification = ConflictError(ReasonConcurrentModification)
	ErrCallerNotInClan        = NotFoundError(ReasonCallerNotInClan)
	ErrUnresolved             = ResolutionError("")
	ErrNotAdmin               = ForbiddenError(ReasonNotAdmin)
	ErrInvalidState           = ValidationError(ReasonInvalidState, nil)
)
