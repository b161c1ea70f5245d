package constants

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Search terms longer than this are rejected
const MaxSearchTermLength = 100

// bcrypt only hashes the first 72 bytes and refuses longer input
const MaxPasswordBytes = 72

const RequestIDHeader = "X-Request-ID"
