package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/auditlog"
	"github.com/ehr/chartnotes/internal/platform/auth"
)

type Service struct {
	repo   Repository
	issuer *auth.Issuer
	audit  auditlog.Recorder
	logger zerolog.Logger
}

// NewService wires the user service. audit may be nil.
func NewService(repo Repository, issuer *auth.Issuer, audit auditlog.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, audit: audit, logger: logger}
}

func validateAccount(username, email string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) > 64 {
		return fmt.Errorf("username must be at most 64 characters")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

// Register creates a provider account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	return s.create(ctx, req, auth.RoleProvider)
}

// Create is the admin path and accepts any valid role.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	role := req.Role
	if role == "" {
		role = auth.RoleProvider
	}
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	return s.create(ctx, req.RegisterRequest, role)
}

// CreateAdmin bootstraps an administrator from the command line.
func (s *Service) CreateAdmin(ctx context.Context, username, email, password string) (*User, error) {
	return s.create(ctx, RegisterRequest{Username: username, Email: email, Password: password}, auth.RoleAdmin)
}

func (s *Service) create(ctx context.Context, req RegisterRequest, role string) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateAccount(req.Username, req.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{Username: req.Username, Email: req.Email, PasswordHash: hash, Role: role}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := auth.CheckPassword(u.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(u.ID.String(), u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	s.record(ctx, auditlog.Event{
		UserID: u.ID.String(), Action: "login", ResourceType: "user",
		ResourceID: u.ID.String(), Details: u.Username + " logged in",
	})
	return &LoginResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *u

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if !strings.EqualFold(name, u.Username) {
			if _, err := s.repo.GetByUsername(ctx, name); err == nil {
				return nil, ErrDuplicateUsername
			} else if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		u.Username = name
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if err := validateAccount(u.Username, u.Email); err != nil {
		return nil, err
	}
	if req.Role != nil {
		if !auth.ValidRole(*req.Role) {
			return nil, fmt.Errorf("invalid role: %s", *req.Role)
		}
		u.Role = *req.Role
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		if u.PasswordHash, err = auth.HashPassword(*req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, auditlog.Event{
		Action: "update", ResourceType: "user", ResourceID: u.ID.String(),
		Before: &before, After: u,
	})
	return u, nil
}

// Delete removes a user. actorID is the administrator performing the call.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrSelfDelete
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, auditlog.Event{
		UserID: actorID.String(), Action: "delete", ResourceType: "user",
		ResourceID: id.String(), Details: "deleted user " + u.Username, Before: u,
	})
	return nil
}

func (s *Service) record(ctx context.Context, ev auditlog.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("action", ev.Action).Str("resource_id", ev.ResourceID).Msg("failed to record audit event")
	}
}
