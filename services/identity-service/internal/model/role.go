package model

// Role is a named permission group.
type Role struct {
	ID               ID     `bson:"_id,omitempty"`
	Name             string `bson:"name"`
	NormalizedName   string `bson:"normalized_name"`
	ConcurrencyStamp string `bson:"concurrency_stamp"`
}

// UserRole links a user to a role.
type UserRole struct {
	ID     ID `bson:"_id,omitempty"`
	UserID ID `bson:"user_id"`
	RoleID ID `bson:"role_id"`
}
