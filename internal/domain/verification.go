package domain

import "time"

// VerificationToken grants a pending registration the right to create a credential.
// PK: token. GSI: email-index. TTL is a Unix timestamp used as DynamoDB TTL; reads
// still check ExpiresAt because TTL deletion is lazy.
type VerificationToken struct {
	Token     string    `json:"-" dynamodbav:"token"`
	Email     string    `json:"email" dynamodbav:"email"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	TTL       int64     `json:"-" dynamodbav:"ttl"`
}

// Expired reports whether the token is past its expiry at now.
func (v *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// IssuedToken is handed to the delivery channel.
type IssuedToken struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

type VerificationRequest struct {
	Email          string `json:"email" validate:"required,email"`
	AgreeToPrivacy bool   `json:"agree_to_privacy" validate:"eq=true"`
}

type SetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// ConsumedToken describes a successful token consumption.
type ConsumedToken struct {
	Email string
	UID   string
}
