package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a service failure; handlers map it to an HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthorized
	KindTooLarge
	KindUpstream
)

// Error is a failure the caller can show to the user.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func upstreamError(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

var (
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Msg: "Invalid email or password"}
	ErrInvalidToken       = &Error{Kind: KindUnauthorized, Msg: "Invalid or expired token"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Msg: "Email is already registered"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Msg: "User not found"}
	ErrCannotDeleteSelf   = &Error{Kind: KindForbidden, Msg: "You cannot delete your own account"}

	ErrResourceNotFound    = &Error{Kind: KindNotFound, Msg: "Resource not found"}
	ErrUploadForbidden     = &Error{Kind: KindForbidden, Msg: "Only students can upload resources"}
	ErrTitleRequired       = &Error{Kind: KindValidation, Msg: "Title and file are required"}
	ErrInvalidFileType     = &Error{Kind: KindValidation, Msg: "Invalid file type. Only PDF, images, DOC, and PPT files are allowed"}
	ErrFileTooLarge        = &Error{Kind: KindTooLarge, Msg: "File too large. Maximum size is 10MB"}
	ErrNotOwner            = &Error{Kind: KindForbidden, Msg: "You can only update your own resources"}
	ErrNotPending          = &Error{Kind: KindValidation, Msg: "You can only update pending resources"}
	ErrDeleteForbidden     = &Error{Kind: KindForbidden, Msg: "Access denied"}
	ErrDeletePendingOnly   = &Error{Kind: KindForbidden, Msg: "You can only delete pending resources"}
	ErrInvalidTransition   = &Error{Kind: KindConflict, Msg: "invalid status transition"}
	ErrSearchQueryRequired = &Error{Kind: KindValidation, Msg: "Search query is required"}
	ErrInvalidFileFilter   = &Error{Kind: KindValidation, Msg: "Invalid file type filter"}
	ErrInvalidStatus       = &Error{Kind: KindValidation, Msg: "Invalid status filter"}

	ErrNotApproved         = &Error{Kind: KindValidation, Msg: "Only approved resources can be rated"}
	ErrSelfRatingForbidden = &Error{Kind: KindForbidden, Msg: "You cannot rate your own resource"}
	ErrInvalidRating       = &Error{Kind: KindValidation, Msg: "Rating must be between 1 and 5"}
	ErrReviewTooLong       = &Error{Kind: KindValidation, Msg: "Review must be at most 500 characters"}
	ErrFavoriteNotAllowed  = &Error{Kind: KindValidation, Msg: "Only approved resources can be favorited"}

	ErrNotificationNotFound = &Error{Kind: KindNotFound, Msg: "Notification not found"}

	ErrTagNotFound     = &Error{Kind: KindNotFound, Msg: "Tag not found"}
	ErrTagExists       = &Error{Kind: KindConflict, Msg: "Tag already exists"}
	ErrInvalidTagColor = &Error{Kind: KindValidation, Msg: "Color must be a hex value like #3B82F6"}
	ErrTagNameRequired = &Error{Kind: KindValidation, Msg: "Tag name is required"}
	ErrUnknownTags     = &Error{Kind: KindValidation, Msg: "One or more tags do not exist"}
)

// notFound maps gorm's missing-row error to nf and passes anything else through.
func notFound(err error, nf *Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return err
}
