package types

import "errors"

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrUserInactive = errors.New("user account is deactivated")
var ErrInvalidToken = errors.New("token is invalid or expired")
var ErrMissingSubject = errors.New("token claims are missing a valid subject")
