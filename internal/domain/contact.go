package domain

import "time"

type ContactStatus string

const (
	ContactUnread ContactStatus = "unread"
	ContactRead   ContactStatus = "read"
)

// ContactMessage is an inquiry sent through the public contact form. PK: contact_id.
type ContactMessage struct {
	ContactID string        `json:"id" dynamodbav:"contact_id"`
	Name      string        `json:"name" dynamodbav:"name"`
	Email     string        `json:"email" dynamodbav:"email"`
	Subject   string        `json:"subject" dynamodbav:"subject"`
	Message   string        `json:"message" dynamodbav:"message"`
	Status    ContactStatus `json:"status" dynamodbav:"status"`
	CreatedAt time.Time     `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time     `json:"updated" dynamodbav:"updated_at"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}
