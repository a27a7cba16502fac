package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
	"github.com/dharsanguruparan/filevault/internal/queue"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/storage"
	"github.com/dharsanguruparan/filevault/internal/thumbnail"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fixture struct {
	svc   *Service
	store *repository.MemoryStore
	blobs *storage.Local
	jobs  *fakeEnqueuer
	bob   *model.User
	alice *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	jobs := &fakeEnqueuer{}
	log, _ := test.NewNullLogger()

	bob := &model.User{Email: "bob@dylan.com", Password: "digest"}
	alice := &model.User{Email: "alice@example.com", Password: "digest"}
	require.NoError(t, store.CreateUser(ctx, bob))
	require.NoError(t, store.CreateUser(ctx, alice))

	return &fixture{
		svc:   NewService(store, blobs, jobs, log),
		store: store,
		blobs: blobs,
		jobs:  jobs,
		bob:   bob,
		alice: alice,
	}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestCreate_Folder(t *testing.T) {
	f := newFixture(t)
	folder, err := f.svc.Create(context.Background(), f.bob, CreateInput{Name: "images", Type: "folder"})
	require.NoError(t, err)

	assert.Len(t, folder.ID, 24)
	assert.Equal(t, f.bob.ID, folder.UserID)
	assert.Equal(t, model.TypeFolder, folder.Type)
	assert.False(t, folder.IsPublic)
	assert.True(t, folder.Parent.IsRoot())
	assert.Empty(t, folder.LocalPath)
	assert.Empty(t, f.jobs.tasks)
}

func TestCreate_FileWritesBlob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "docs", Type: "folder"})
	require.NoError(t, err)

	file, err := f.svc.Create(ctx, f.bob, CreateInput{
		Name:     "notes.txt",
		Type:     "file",
		Parent:   model.Folder(folder.ID),
		IsPublic: true,
		Data:     b64("Hello Webstack!\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, folder.ID, file.Parent.ID())
	assert.True(t, file.IsPublic)
	require.NotEmpty(t, file.LocalPath)
	assert.NotContains(t, file.LocalPath, "notes.txt")

	data, err := f.blobs.Get(ctx, file.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!\n", string(data))
	assert.Empty(t, f.jobs.tasks)
}

func TestCreate_ImageEnqueuesThumbnail(t *testing.T) {
	f := newFixture(t)
	img, err := f.svc.Create(context.Background(), f.bob, CreateInput{Name: "a.png", Type: "image", Data: b64("png")})
	require.NoError(t, err)

	require.Len(t, f.jobs.tasks, 1)
	assert.Equal(t, queue.TypeThumbnail, f.jobs.tasks[0].Type())
	assert.JSONEq(t, fmt.Sprintf(`{"fileId":%q,"userId":%q}`, img.ID, f.bob.ID), string(f.jobs.tasks[0].Payload()))
}

func TestCreate_EnqueueFailureStillCreates(t *testing.T) {
	f := newFixture(t)
	f.jobs.err = errors.New("redis down")
	img, err := f.svc.Create(context.Background(), f.bob, CreateInput{Name: "a.png", Type: "image", Data: b64("png")})
	require.NoError(t, err)

	_, err = f.store.FileByID(context.Background(), img.ID)
	require.NoError(t, err)
}

func TestCreate_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plain, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "plain.txt", Type: "file", Data: b64("x")})
	require.NoError(t, err)
	othersFolder, err := f.svc.Create(ctx, f.alice, CreateInput{Name: "shared", Type: "folder"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"everything missing", CreateInput{}, common.ErrMissingName},
		{"name before type", CreateInput{Type: "file", Parent: model.Folder("bad")}, common.ErrMissingName},
		{"missing type", CreateInput{Name: "x"}, common.ErrMissingType},
		{"unknown type", CreateInput{Name: "x", Type: "video", Data: b64("x")}, common.ErrMissingType},
		{"type before data", CreateInput{Name: "x", Type: "other"}, common.ErrMissingType},
		{"missing data", CreateInput{Name: "x", Type: "file"}, common.ErrMissingData},
		{"data before parent", CreateInput{Name: "x", Type: "image", Parent: model.Folder(model.NewID())}, common.ErrMissingData},
		{"malformed parent", CreateInput{Name: "x", Type: "folder", Parent: model.Folder("1234")}, common.ErrParentNotFound},
		{"absent parent", CreateInput{Name: "x", Type: "folder", Parent: model.Folder(model.NewID())}, common.ErrParentNotFound},
		{"parent is a file", CreateInput{Name: "x", Type: "file", Data: b64("x"), Parent: model.Folder(plain.ID)}, common.ErrParentNotFolder},
		{"invalid base64", CreateInput{Name: "x", Type: "file", Data: "@@@@"}, common.ErrInvalidData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.bob, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Parents are not owner scoped.
	_, err = f.svc.Create(ctx, f.bob, CreateInput{Name: "x", Type: "folder", Parent: model.Folder(othersFolder.ID)})
	assert.NoError(t, err)
}

func TestShow_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	file, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "a.txt", Type: "file", Data: b64("a"), IsPublic: true})
	require.NoError(t, err)

	got, err := f.svc.Show(ctx, f.bob, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	_, err = f.svc.Show(ctx, f.alice, file.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.svc.Show(ctx, f.bob, "not-an-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_PagesInCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "root-folder", Type: "folder"})
	require.NoError(t, err)

	var want []string
	for i := 0; i < 45; i++ {
		file, err := f.svc.Create(ctx, f.bob, CreateInput{
			Name: fmt.Sprintf("f%02d", i), Type: "file", Data: b64("x"), Parent: model.Folder(folder.ID),
		})
		require.NoError(t, err)
		want = append(want, file.ID)
	}
	_, err = f.svc.Create(ctx, f.alice, CreateInput{Name: "alien", Type: "folder"})
	require.NoError(t, err)

	var got []string
	for page := 0; ; page++ {
		items, err := f.svc.List(ctx, f.bob, model.Folder(folder.ID), page)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(items), PageSize)
		if len(items) == 0 {
			break
		}
		for _, it := range items {
			got = append(got, it.ID)
		}
	}
	assert.Equal(t, want, got)

	root, err := f.svc.List(ctx, f.bob, model.Root, 0)
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, folder.ID, root[0].ID)
}

func TestList_HugePageIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "a.txt", Type: "file", Data: b64("a")})
	require.NoError(t, err)

	for _, page := range []int{math.MaxInt / PageSize, math.MaxInt/PageSize + 1, math.MaxInt} {
		items, err := f.svc.List(ctx, f.bob, model.Root, page)
		require.NoError(t, err, page)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestList_MalformedParentIsEmpty(t *testing.T) {
	f := newFixture(t)
	items, err := f.svc.List(context.Background(), f.bob, model.Folder("xyz"), 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPublishUnpublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	file, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "a.txt", Type: "file", Data: b64("a")})
	require.NoError(t, err)

	pub, err := f.svc.Publish(ctx, f.bob, file.ID)
	require.NoError(t, err)
	assert.True(t, pub.IsPublic)

	unpub, err := f.svc.Unpublish(ctx, f.bob, file.ID)
	require.NoError(t, err)
	assert.False(t, unpub.IsPublic)

	_, err = f.svc.Publish(ctx, f.alice, file.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.svc.Unpublish(ctx, f.bob, "0")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContent_VisibilityGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	private, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "secret.txt", Type: "file", Data: b64("secret")})
	require.NoError(t, err)
	public, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "open.txt", Type: "file", Data: b64("open"), IsPublic: true})
	require.NoError(t, err)

	tests := []struct {
		name   string
		viewer *model.User
		id     string
		want   string
		err    error
	}{
		{"owner reads private", f.bob, private.ID, "secret", nil},
		{"anonymous denied private", nil, private.ID, "", common.ErrNotFound},
		{"other user denied private", f.alice, private.ID, "", common.ErrNotFound},
		{"anonymous reads public", nil, public.ID, "open", nil},
		{"other user reads public", f.alice, public.ID, "open", nil},
		{"unknown id", f.bob, model.NewID(), "", common.ErrNotFound},
		{"malformed id", f.bob, "nope", "", common.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := f.svc.Content(ctx, tc.viewer, tc.id, "")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(c.Data))
			assert.Equal(t, "text/plain; charset=utf-8", c.ContentType)
		})
	}
}

func TestContent_Folder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "dir", Type: "folder", IsPublic: true})
	require.NoError(t, err)

	_, err = f.svc.Content(ctx, f.bob, folder.ID, "")
	assert.ErrorIs(t, err, common.ErrNoContent)
	_, err = f.svc.Content(ctx, nil, folder.ID, "")
	assert.ErrorIs(t, err, common.ErrNoContent)
}

func TestContent_Sizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	img, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "photo.png", Type: "image", Data: b64("original")})
	require.NoError(t, err)
	require.NoError(t, f.blobs.PutAt(ctx, thumbnail.DerivativePath(img.LocalPath, 250), []byte("small")))
	doc, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "doc.txt", Type: "file", Data: b64("text")})
	require.NoError(t, err)

	c, err := f.svc.Content(ctx, f.bob, img.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "original", string(c.Data))
	assert.Equal(t, "image/png", c.ContentType)

	c, err = f.svc.Content(ctx, f.bob, img.ID, "250")
	require.NoError(t, err)
	assert.Equal(t, "small", string(c.Data))

	for _, size := range []string{"500", "300", "abc", "-100"} {
		_, err = f.svc.Content(ctx, f.bob, img.ID, size)
		assert.ErrorIs(t, err, common.ErrNotFound, "size %s", size)
	}

	c, err = f.svc.Content(ctx, f.bob, doc.ID, "500")
	require.NoError(t, err)
	assert.Equal(t, "text", string(c.Data))
}

func TestContentType_Sniffs(t *testing.T) {
	assert.Equal(t, "application/pdf", contentType("report", []byte("%PDF-1.4\n")))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("README", []byte("hello")))
}
