package domain

import "errors"

var (
	// ErrAccountExists is returned when signing up with an email that is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTopicNotFound indicates a topic id missing from the catalog.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrSubtopicNotFound indicates a subtopic id missing from its topic.
	ErrSubtopicNotFound = errors.New("subtopic not found")
	// ErrMissingFields is returned when signup or login omits a required field.
	ErrMissingFields = errors.New("name, email and password are required")
	// ErrNotAuthenticated is returned by client operations that need a session.
	ErrNotAuthenticated = errors.New("not logged in")
)
