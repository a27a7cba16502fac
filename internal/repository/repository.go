// Package repository persists users and file records. Three backends share
// the Store contract: MongoDB (default), PostgreSQL and an in-memory map used
// for development and tests.
package repository

import (
	"context"

	"github.com/dharsanguruparan/filevault/internal/model"
)

// Store is the credential and file record store.
//
// Lookups that match nothing return common.ErrNotFound. CreateUser returns
// common.ErrConflict when the email is taken.
type Store interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, user *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateFile(ctx context.Context, file *model.File) error
	FileByID(ctx context.Context, id string) (*model.File, error)
	FileByOwner(ctx context.Context, id, userID string) (*model.File, error)
	// ListFiles returns the owner's records under parent in ascending
	// identifier order.
	ListFiles(ctx context.Context, userID string, parent model.Parent, skip, limit int) ([]*model.File, error)
	// SetPublic flips the visibility flag of an owned record in one atomic
	// update and returns the updated record. Concurrent calls race; the last
	// write wins.
	SetPublic(ctx context.Context, id, userID string, public bool) (*model.File, error)
	CountFiles(ctx context.Context) (int64, error)
}
