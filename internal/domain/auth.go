package domain

import "time"

// Token describes the claims carried by an issued bearer token.
type Token struct {
	SubjectID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the request-scoped identity produced by a successful authentication.
type Principal struct {
	User  PublicUser
	Token Token
}
