package domain

// Account is the resource exposed by the service, keyed by its user handle.
type Account struct {
	User string `json:"user" validate:"notblank"`
	Name string `json:"name" validate:"notblank"`
}
