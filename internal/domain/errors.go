package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation               = errors.New("validation failed")
	ErrEmailAlreadyRegistered   = errors.New("email already registered")
	ErrTokenInvalid             = errors.New("verification token invalid")
	ErrTokenExpired             = errors.New("verification token expired")
	ErrIdentifierExhausted      = errors.New("member identifier retries exhausted")
	ErrIdentifierSpaceExhausted = errors.New("member identifier space exhausted")
	ErrCredentialCreation       = errors.New("credential creation failed")
	ErrCredentialExists         = errors.New("credential already exists")
	ErrStorageUnavailable       = errors.New("storage unavailable")
	ErrDeliveryFailed           = errors.New("verification delivery failed")
	ErrIdentifierTaken          = errors.New("member identifier already taken")
	ErrNotFound                 = errors.New("not found")
	ErrConflict                 = errors.New("conflict")
	ErrUnauthorized             = errors.New("unauthorized")
)

// Result codes carried in structured results.
const (
	CodeValidation               = "validation_error"
	CodeEmailAlreadyRegistered   = "email_already_registered"
	CodeTokenInvalid             = "token_invalid"
	CodeTokenExpired             = "token_expired"
	CodeIdentifierExhausted      = "identifier_exhausted"
	CodeIdentifierSpaceExhausted = "identifier_space_exhausted"
	CodeCredentialCreation       = "credential_creation_failed"
	CodeStorageUnavailable       = "storage_unavailable"
	CodeDeliveryFailed           = "delivery_failed"
	CodeNotFound                 = "not_found"
	CodeUnauthorized             = "unauthorized"
	CodeInternal                 = "internal_error"
)

// Result is the structured outcome of a core operation.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type category struct {
	err     error
	code    string
	message string
}

// Order matters: ErrCredentialExists is checked before ErrCredentialCreation because
// the former is usually wrapped inside the latter.
var categories = []category{
	{ErrValidation, CodeValidation, "The submitted data is invalid."},
	{ErrEmailAlreadyRegistered, CodeEmailAlreadyRegistered, "This email address is already registered."},
	{ErrCredentialExists, CodeEmailAlreadyRegistered, "This email address is already registered."},
	{ErrTokenInvalid, CodeTokenInvalid, "This verification link is invalid. Please start the registration again."},
	{ErrTokenExpired, CodeTokenExpired, "This verification link has expired. Please start the registration again."},
	{ErrIdentifierExhausted, CodeIdentifierExhausted, "Membership numbers are temporarily unavailable. Please try again later."},
	{ErrIdentifierSpaceExhausted, CodeIdentifierSpaceExhausted, "Membership numbers are temporarily unavailable. Please try again later."},
	{ErrCredentialCreation, CodeCredentialCreation, "The account could not be created. Please retry with the same link."},
	{ErrDeliveryFailed, CodeDeliveryFailed, "The verification email could not be sent. Please try again."},
	{ErrStorageUnavailable, CodeStorageUnavailable, "The service is temporarily unavailable. Please try again later."},
	{ErrUnauthorized, CodeUnauthorized, "Please sign in to continue."},
	{ErrNotFound, CodeNotFound, "The requested record was not found."},
}

// OK is the successful Result.
func OK() Result { return Result{Success: true} }

// ResultOf converts an operation error into a structured Result.
// A nil error yields a successful Result.
func ResultOf(err error) Result {
	if err == nil {
		return OK()
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return Result{Code: c.code, Message: c.message}
		}
	}
	return Result{Code: CodeInternal, Message: "An unexpected error occurred."}
}
