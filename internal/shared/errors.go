package shared

import "fmt"

// Config
var (
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
)

// Identity service and sessions
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")
	ErrVerifyFailed       = fmt.Errorf("token verification failed")
)

// Remote collection and sync
var (
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrConflict           = fmt.Errorf("remote rejected change")
	ErrTodoNotFound       = fmt.Errorf("todo not found")
	ErrBlobNotFound       = fmt.Errorf("blob not found")
)

// Input
var (
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
