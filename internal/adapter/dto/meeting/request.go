// Package meeting holds the wire types for meeting history operations.
package meeting

// ListArchiveRequest pages through the database archive.
type ListArchiveRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}
