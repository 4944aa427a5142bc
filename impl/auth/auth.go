package auth

import (
	"crypto/subtle"
	"fmt"
)

// Auth authorizes admin API requests against the single static token from
// the service configuration.
type Auth struct {
	token string
}

func New(token string) *Auth {
	return &Auth{token: token}
}

func (a Auth) AuthorizeToken(token string) error {
	if a.token == "" {
		return fmt.Errorf("api token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(a.token), []byte(token)) != 1 {
		return fmt.Errorf("token mismatch")
	}
	return nil
}
