package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
)

// MemoryStore keeps records in maps guarded by an RWMutex. Readers share the
// lock; writers take it exclusively.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*model.User
	files map[string]*model.File
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
		files: make(map[string]*model.File),
	}
}

func (m *MemoryStore) Ping(context.Context) error  { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return common.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = model.NewID()
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MemoryStore) CountUsers(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) CreateFile(_ context.Context, file *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file.ID == "" {
		file.ID = model.NewID()
	}
	clone := *file
	m.files[file.ID] = &clone
	return nil
}

func (m *MemoryStore) FileByID(_ context.Context, id string) (*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (m *MemoryStore) FileByOwner(ctx context.Context, id, userID string) (*model.File, error) {
	f, err := m.FileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrNotFound
	}
	return f, nil
}

func (m *MemoryStore) ListFiles(_ context.Context, userID string, parent model.Parent, skip, limit int) ([]*model.File, error) {
	m.mu.RLock()
	matched := make([]*model.File, 0)
	for _, f := range m.files {
		if f.UserID == userID && f.Parent == parent {
			clone := *f
			matched = append(matched, &clone)
		}
	}
	m.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if skip < 0 || skip >= len(matched) {
		return []*model.File{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) SetPublic(_ context.Context, id, userID string, public bool) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrNotFound
	}
	f.IsPublic = public
	clone := *f
	return &clone, nil
}

func (m *MemoryStore) CountFiles(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.files)), nil
}
