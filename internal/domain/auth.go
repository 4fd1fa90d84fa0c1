package domain

// SessionState is the authentication state of a client session.
type SessionState string

const (
	SessionAnonymous     SessionState = "ANONYMOUS"
	SessionAuthenticated SessionState = "AUTHENTICATED"
)
