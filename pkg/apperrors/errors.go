package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrSpecExists       = errors.New("spec id already exists")
	ErrNoSpecSelected   = errors.New("no spec selected")
	ErrSpecNotInSession = errors.New("spec is not in the session candidate list")
	ErrInvalidSpec      = errors.New("invalid metric spec")
	ErrHostileSQL       = errors.New("sql rejected by injection check")
	ErrUnknownAction    = errors.New("unknown expert decision action")
)
