package attachment

import "errors"

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrAttachmentNotOwned = errors.New("attachment belongs to another user")
	ErrAttachmentNotReady = errors.New("attachment is not ready")
)
