package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidOption      = errors.New("invalid option")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrBuild              = errors.New("query build failed")
	ErrQueryExecution     = errors.New("query execution failed")
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	ErrUnsupportedFeature = errors.New("feature not supported by dialect")
	ErrMissingView        = errors.New("required database view is missing")
)
