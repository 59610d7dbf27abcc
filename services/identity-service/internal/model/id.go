package model

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ID is the 12-byte identifier shared by every record in the credential store.
type ID = bson.ObjectID

// ErrInvalidID is returned when a string cannot be parsed into an ID.
var ErrInvalidID = errors.New("invalid id")

// NewID generates a fresh ID.
func NewID() ID {
	return bson.NewObjectID()
}

// ParseID parses the hex form of an ID.
func ParseID(s string) (ID, error) {
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("%w %q: %v", ErrInvalidID, s, err)
	}

	return id, nil
}
