package mongodb

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Now returns the current time in UTC truncated to millisecond precision,
// which is what BSON dates store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// BuildUpdateWithTimestamp builds a $set update document with automatic updatedAt
func BuildUpdateWithTimestamp(set bson.M) bson.M {
	set["updatedAt"] = Now()
	return bson.M{"$set": set}
}

// BuildUpsert builds an update that also stamps createdAt on insert
func BuildUpsert(set bson.M) bson.M {
	update := BuildUpdateWithTimestamp(set)
	update["$setOnInsert"] = bson.M{"createdAt": Now()}
	return update
}

// IsNotFound reports whether err is the driver's no-documents error
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
