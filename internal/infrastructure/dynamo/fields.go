package dynamo

// DynamoDB attribute and index names shared across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldMemberID  = "member_id"
	fieldEmail     = "email"
	fieldUID       = "uid"
	fieldToken     = "token"
	fieldTTL       = "ttl"
	fieldGuardKey  = "guard_key"
	fieldCounterID = "counter_id"
	fieldCurrent   = "current"
	fieldContactID = "contact_id"

	fieldPasswordHash = "password_hash"
	fieldUpdatedAt    = "updated_at"

	indexEmail = "email-index"
	indexUID   = "uid-index"
)

// Guard key prefixes in the member_keys table.
const (
	guardEmail = "email#"
	guardUID   = "uid#"
)
