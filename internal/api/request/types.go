// Package request holds the admin API's request body types.
package request

// Register is the body for account registration
type Register struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Login is the body for account login
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
