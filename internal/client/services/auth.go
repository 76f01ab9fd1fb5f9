// Package services holds the client's use cases: the account session and the
// send/fetch pipeline. Transports and storage come in through small
// interfaces so the pipeline can be tested without a server.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
)

// SessionClient is the account half of the API client.
type SessionClient interface {
	Register(ctx context.Context, name, email, password string) (*api.User, error)
	Login(ctx context.Context, email, password string) error
	SetTokens(access, refresh string)
	Tokens() (string, string)
	OnTokens(fn func(access, refresh string))
}

type AuthService struct {
	client SessionClient
	meta   metadata.Repository
}

// NewAuthService binds the session to the local metadata store. Tokens the
// client obtains later (login or refresh) are written through to meta.
func NewAuthService(client SessionClient, meta metadata.Repository) *AuthService {
	s := &AuthService{client: client, meta: meta}
	client.OnTokens(s.persistTokens)
	return s
}

func (s *AuthService) persistTokens(access, refresh string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if access == "" {
		_ = s.meta.Delete(ctx, metadata.KeyAccessToken, metadata.KeyRefreshToken)
		return
	}
	_ = s.meta.Set(ctx, metadata.KeyAccessToken, access)
	_ = s.meta.Set(ctx, metadata.KeyRefreshToken, refresh)
}

// Restore loads a saved session into the client. It returns the email of the
// saved user, or "" when nobody is logged in.
func (s *AuthService) Restore(ctx context.Context) (string, error) {
	access, err := s.meta.Get(ctx, metadata.KeyAccessToken)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	refresh, err := s.meta.Get(ctx, metadata.KeyRefreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	email, err := s.meta.Get(ctx, metadata.KeyEmail)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	s.client.SetTokens(access, refresh)
	return email, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*api.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	return s.client.Register(ctx, name, email, password)
}

func (s *AuthService) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	if err := s.client.Login(ctx, email, password); err != nil {
		return err
	}
	return s.meta.Set(ctx, metadata.KeyEmail, email)
}

// Logout forgets the local session. Tokens already issued stay valid on the
// server until they expire.
func (s *AuthService) Logout(ctx context.Context) error {
	s.client.SetTokens("", "")
	return s.meta.Delete(ctx, metadata.KeyAccessToken, metadata.KeyRefreshToken, metadata.KeyEmail)
}
