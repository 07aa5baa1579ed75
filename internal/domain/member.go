package domain

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type HairType string

const (
	HairStraight HairType = "straight"
	HairCurly    HairType = "curly"
	HairOther    HairType = "other"
)

// Member is one registered association member.
// MemberID is unique across members and never changes after issuance.
type Member struct {
	RecordID  string    `json:"id" dynamodbav:"record_id"`
	UID       string    `json:"uid" dynamodbav:"uid"`
	Name      *string   `json:"name" dynamodbav:"name"`
	Email     string    `json:"email" dynamodbav:"email"`
	Age       int       `json:"age" dynamodbav:"age"`
	Gender    Gender    `json:"gender" dynamodbav:"gender"`
	HairType  HairType  `json:"hair_type" dynamodbav:"hair_type"`
	MemberID  string    `json:"member_id" dynamodbav:"member_id"`
	IssuedAt  time.Time `json:"issued_at" dynamodbav:"issued_at"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// MemberCard is the public projection rendered on a membership card.
type MemberCard struct {
	MemberID string    `json:"member_id"`
	Name     *string   `json:"name"`
	HairType HairType  `json:"hair_type"`
	IssuedAt time.Time `json:"issued_at"`
}

func (m *Member) Card() *MemberCard {
	return &MemberCard{MemberID: m.MemberID, Name: m.Name, HairType: m.HairType, IssuedAt: m.IssuedAt}
}

type RegisterMemberRequest struct {
	Name     *string  `json:"name" validate:"omitempty,max=100"`
	Age      int      `json:"age" validate:"required,min=13,max=120"`
	Gender   Gender   `json:"gender" validate:"required,oneof=male female other"`
	HairType HairType `json:"hair_type" validate:"required,oneof=straight curly other"`
}

// NormalizeEmail trims and lower-cases an address so lookups and writes agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
