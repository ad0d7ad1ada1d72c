package presence

import "strings"

// authFlowPaths are screens where presence must not be reported.
var authFlowPaths = []string{
	"/login",
	"/signup",
	"/register",
	"/forgot-password",
	"/reset-password",
	"/auth",
}

// Eligibility is the input that decides whether tracking runs.
type Eligibility struct {
	UserID string
	Path   string
}

// Eligible reports whether a user is signed in and not on an auth-flow screen.
func (e Eligibility) Eligible() bool {
	return strings.TrimSpace(e.UserID) != "" && !IsAuthFlowPath(e.Path)
}

// IsAuthFlowPath reports whether path belongs to the sign-in/sign-up flow.
func IsAuthFlowPath(path string) bool {
	path = strings.ToLower(strings.TrimSpace(path))
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSuffix(path, "/")

	for _, prefix := range authFlowPaths {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}
