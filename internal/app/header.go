package app

import (
	"io"

	"dsa-tracker/internal/domain"
)

const appTitle = "DSA - Tracker"

// RenderHeader writes the title bar with the action available for the session.
func RenderHeader(w io.Writer, user *domain.User) error {
	ew := &errWriter{w: w}
	if user == nil {
		ew.printf("%s    [Login / Signup]\n", appTitle)
	} else {
		ew.printf("%s    %s <%s>  [Logout]\n", appTitle, user.Name, user.Email)
	}
	return ew.err
}
