// package models defines the data model for the todox client and web app
package models

import (
	"context"
	"time"
)

// Model defines the base interface for persistent records.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the remote collection operations the sync store depends on.
type Repository[T Model] interface {
	Select(ctx context.Context, columns ...string) ([]T, error)               // Select lists every row with the given columns
	Create(ctx context.Context, model T) error                                // Create inserts a new row
	Update(ctx context.Context, id string, fields Fields, at time.Time) error // Update patches fields of a row, as written at at
	Delete(ctx context.Context, id string) error                              // Delete removes a row by its ID
	ChangesSince(ctx context.Context, cursor time.Time) ([]T, error)          // ChangesSince lists rows updated after cursor
}
