package notify

import "errors"

var (
	ErrEmailRejected   = errors.New("email endpoint rejected the message")
	ErrNoRecipient     = errors.New("no recipient address")
	ErrNoParticipants  = errors.New("no participants")
	ErrTemplateMissing = errors.New("certificate template not found")
)
