package rpc

// ErrorDomain is the google.rpc.ErrorInfo domain of service errors.
const ErrorDomain = "davlock"

// google.rpc.ErrorInfo reasons.
const (
	ReasonLockConflict      = "LOCK_CONFLICT"
	ReasonLockNotFound      = "LOCK_NOT_FOUND"
	ReasonLockOwnerMismatch = "LOCK_OWNER_MISMATCH"
	ReasonHeaderSyntax      = "HEADER_SYNTAX"
	ReasonInvalidArgument   = "INVALID_ARGUMENT"
	ReasonTooManyLocks      = "TOO_MANY_LOCKS"
	ReasonRateLimited       = "RATE_LIMITED"
)

// ErrorInfo metadata keys.
const (
	MetadataPath      = "path"
	MetadataConflicts = "conflicts"
	MetadataHeader    = "header"
	MetadataOffset    = "offset"
)
