package domain

import "fmt"

// AccountNotFoundError is returned when no account exists for a handle.
type AccountNotFoundError struct {
	User string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("Account not found. User: %s", e.User)
}

// InvalidArgumentError carries a client facing validation message.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// AccountExistsError is returned when creating an account whose handle is taken.
type AccountExistsError struct {
	User string
}

func (e *AccountExistsError) Error() string {
	return fmt.Sprintf("Account already exists. User: %s", e.User)
}
