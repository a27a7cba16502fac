// Package files enforces the folder hierarchy on creation, pages through a
// user's tree and decides who may read a record's content.
package files

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
	"github.com/dharsanguruparan/filevault/internal/queue"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/storage"
	"github.com/dharsanguruparan/filevault/internal/thumbnail"
)

// PageSize is the fixed number of records per listing page.
const PageSize = 20

// CreateInput is the body of an upload. Data is base64 encoded.
type CreateInput struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Parent   model.Parent `json:"parentId"`
	IsPublic bool         `json:"isPublic"`
	Data     string       `json:"data"`
}

// Content is what a content fetch serves.
type Content struct {
	Data        []byte
	ContentType string
}

type Service struct {
	store repository.Store
	blobs storage.Blob
	jobs  queue.Enqueuer
	log   *logrus.Logger
}

func NewService(store repository.Store, blobs storage.Blob, jobs queue.Enqueuer, log *logrus.Logger) *Service {
	return &Service{store: store, blobs: blobs, jobs: jobs, log: log}
}

// Create validates in.Name, in.Type, in.Data, then the parent, and reports
// the first failure only. Folders are inserted directly; other types have
// their payload written to blob storage first. Image uploads schedule a
// thumbnail job once the record exists.
func (s *Service) Create(ctx context.Context, owner *model.User, in CreateInput) (*model.File, error) {
	if in.Name == "" {
		return nil, common.ErrMissingName
	}
	fileType := model.FileType(in.Type)
	if !fileType.Valid() {
		return nil, common.ErrMissingType
	}
	if in.Data == "" && fileType.HasContent() {
		return nil, common.ErrMissingData
	}
	if err := s.checkParent(ctx, in.Parent); err != nil {
		return nil, err
	}

	file := &model.File{
		UserID:   owner.ID,
		Name:     in.Name,
		Type:     fileType,
		IsPublic: in.IsPublic,
		Parent:   in.Parent,
	}
	if !fileType.HasContent() {
		if err := s.store.CreateFile(ctx, file); err != nil {
			return nil, err
		}
		return file, nil
	}

	data, err := decodeData(in.Data)
	if err != nil {
		return nil, common.ErrInvalidData
	}
	path, err := s.blobs.Put(ctx, uuid.NewString(), data)
	if err != nil {
		return nil, err
	}
	file.LocalPath = path
	if err := s.store.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	if fileType == model.TypeImage {
		payload := queue.ThumbnailPayload{FileID: file.ID, UserID: owner.ID}
		if err := queue.EnqueueThumbnail(context.WithoutCancel(ctx), s.jobs, payload); err != nil {
			s.log.WithError(err).WithField("fileId", file.ID).Error("enqueue thumbnail job")
		}
	}
	return file, nil
}

// checkParent accepts the root, or an existing folder of any owner. A
// malformed identifier reads as not found.
func (s *Service) checkParent(ctx context.Context, parent model.Parent) error {
	if parent.IsRoot() {
		return nil
	}
	if !model.ValidID(parent.ID()) {
		return common.ErrParentNotFound
	}
	record, err := s.store.FileByID(ctx, parent.ID())
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrParentNotFound
	}
	if err != nil {
		return err
	}
	if record.Type != model.TypeFolder {
		return common.ErrParentNotFolder
	}
	return nil
}

func decodeData(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if data, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
}

// Show returns an owned record. Public records of others are not shown.
func (s *Service) Show(ctx context.Context, owner *model.User, id string) (*model.File, error) {
	if !model.ValidID(id) {
		return nil, common.ErrNotFound
	}
	return s.store.FileByOwner(ctx, id, owner.ID)
}

// List returns page (zero based) of the owner's records under parent in
// creation order. A malformed parent yields an empty page.
func (s *Service) List(ctx context.Context, owner *model.User, parent model.Parent, page int) ([]*model.File, error) {
	if !parent.IsRoot() && !model.ValidID(parent.ID()) {
		return []*model.File{}, nil
	}
	if page < 0 {
		page = 0
	}
	if page > math.MaxInt/PageSize {
		return []*model.File{}, nil
	}
	return s.store.ListFiles(ctx, owner.ID, parent, page*PageSize, PageSize)
}

func (s *Service) Publish(ctx context.Context, owner *model.User, id string) (*model.File, error) {
	return s.setPublic(ctx, owner, id, true)
}

func (s *Service) Unpublish(ctx context.Context, owner *model.User, id string) (*model.File, error) {
	return s.setPublic(ctx, owner, id, false)
}

func (s *Service) setPublic(ctx context.Context, owner *model.User, id string, public bool) (*model.File, error) {
	if !model.ValidID(id) {
		return nil, common.ErrNotFound
	}
	return s.store.SetPublic(ctx, id, owner.ID, public)
}

// Content serves a record's bytes. viewer may be nil. Private records of
// other users read as not found. size selects a thumbnail of an image and
// is ignored for other types.
func (s *Service) Content(ctx context.Context, viewer *model.User, id, size string) (*Content, error) {
	if !model.ValidID(id) {
		return nil, common.ErrNotFound
	}
	file, err := s.store.FileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !file.IsPublic && (viewer == nil || viewer.ID != file.UserID) {
		return nil, common.ErrNotFound
	}
	if !file.Type.HasContent() {
		return nil, common.ErrNoContent
	}

	path := file.LocalPath
	if file.Type == model.TypeImage && size != "" {
		width, err := strconv.Atoi(size)
		if err != nil || !thumbnail.ValidWidth(width) {
			return nil, common.ErrNotFound
		}
		path = thumbnail.DerivativePath(path, width)
	}
	data, err := s.blobs.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Content{Data: data, ContentType: contentType(file.Name, data)}, nil
}

// contentType prefers the display name's extension and falls back to
// sniffing the bytes.
func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
