package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("could not validate credentials")
	ErrInactiveUser       = errors.New("inactive user")
	ErrForbidden          = errors.New("insufficient privileges")
	ErrRoleNotAuthorized  = errors.New("role not authorized for this resource")
	ErrSuperuserRequired  = errors.New("only superusers can create users")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUpstream           = errors.New("upstream fetch failed")
)
