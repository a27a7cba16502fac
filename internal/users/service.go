// Package users registers accounts and exchanges credentials for session
// tokens.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
	"github.com/dharsanguruparan/filevault/internal/queue"
	"github.com/dharsanguruparan/filevault/internal/repository"
	"github.com/dharsanguruparan/filevault/internal/session"
)

type Service struct {
	store    repository.Store
	sessions *session.Manager
	jobs     queue.Enqueuer
	log      *logrus.Logger
}

func NewService(store repository.Store, sessions *session.Manager, jobs queue.Enqueuer, log *logrus.Logger) *Service {
	return &Service{store: store, sessions: sessions, jobs: jobs, log: log}
}

// Register creates an account and schedules the welcome job. A failed
// enqueue is logged and does not fail the registration.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" {
		return nil, common.ErrMissingEmail
	}
	if password == "" {
		return nil, common.ErrMissingPassword
	}
	_, err := s.store.UserByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrConflict
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	digest, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: email, Password: digest}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := queue.EnqueueWelcome(context.WithoutCancel(ctx), s.jobs, queue.WelcomePayload{UserID: user.ID}); err != nil {
		s.log.WithError(err).WithField("userId", user.ID).Error("enqueue welcome job")
	}
	return user, nil
}

// Connect checks the credentials and issues a session token.
func (s *Service) Connect(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", common.ErrUnauthorized
	}
	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	ok, err := ComparePassword(password, user.Password)
	if err != nil {
		s.log.WithError(err).WithField("userId", user.ID).Warn("stored password digest unreadable")
		return "", common.ErrUnauthorized
	}
	if !ok {
		return "", common.ErrUnauthorized
	}
	return s.sessions.Issue(ctx, user.ID)
}

// Authenticate resolves token to a user that still exists.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, found, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrUnauthorized
	}
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}

// Disconnect revokes token. An unknown token is Unauthorized rather than a
// silent success.
func (s *Service) Disconnect(ctx context.Context, token string) error {
	if _, err := s.Authenticate(ctx, token); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, token)
}
