package model

// Login links a user to an identity held by an external provider (Google, Facebook, etc.).
// It is unique on (Provider, ProviderKey).
type Login struct {
	ID          ID     `bson:"_id,omitempty"`
	UserID      ID     `bson:"user_id"`
	Provider    string `bson:"provider"`
	ProviderKey string `bson:"provider_key"`
	DisplayName string `bson:"display_name,omitempty"`
}

// LoginInfo is a login detached from its owner, as supplied by callers.
type LoginInfo struct {
	Provider    string `validate:"required"`
	ProviderKey string `validate:"required"`
	DisplayName string
}
