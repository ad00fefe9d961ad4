// Package docdb provides the document database type constants.
package docdb

// Type represents the type of document database.
type Type string

const (
	// TypeNone disables the document database.
	TypeNone Type = "none"

	// TypeMongoDB represents a MongoDB database.
	TypeMongoDB Type = "mongodb"
)
