package model

// Token is a generic named value scoped to a user, unique on (UserID, Provider, Name).
type Token struct {
	ID       ID     `bson:"_id,omitempty"`
	UserID   ID     `bson:"user_id"`
	Provider string `bson:"provider"`
	Name     string `bson:"name"`
	Value    string `bson:"value"`
}
