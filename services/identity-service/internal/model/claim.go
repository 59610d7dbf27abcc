package model

// Claim is a (type, value) fact about a user.
type Claim struct {
	ID     ID     `bson:"_id,omitempty"`
	UserID ID     `bson:"user_id"`
	Type   string `bson:"type"`
	Value  string `bson:"value"`
}

// ClaimValue is a claim detached from its owner, as supplied by callers.
type ClaimValue struct {
	Type  string `validate:"required"`
	Value string
}
