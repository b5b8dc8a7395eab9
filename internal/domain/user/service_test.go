package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/auditlog"
	"github.com/ehr/chartnotes/internal/platform/auth"
)

type mockRepo struct {
	store map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.store {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.store {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.store[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.store {
		out = append(out, u)
	}
	return out, len(out), nil
}

type fakeRecorder struct {
	events []auditlog.Event
}

func (f *fakeRecorder) RecordEvent(_ context.Context, ev auditlog.Event) error {
	f.events = append(f.events, ev)
	return nil
}

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService() (*Service, *mockRepo, *fakeRecorder) {
	repo := newMockRepo()
	rec := &fakeRecorder{}
	issuer := auth.NewIssuer("chartnotes-test", testKey, time.Hour)
	return NewService(repo, issuer, rec, zerolog.Nop()), repo, rec
}

func TestRegister(t *testing.T) {
	svc, repo, _ := newTestService()
	u, err := svc.Register(context.Background(), RegisterRequest{Username: " drsmith ", Email: "smith@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != "drsmith" || u.Role != auth.RoleProvider {
		t.Errorf("user = %+v", u)
	}
	stored := repo.store[u.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Error("expected hashed password")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing username", RegisterRequest{Email: "a@b.c", Password: "secret1"}},
		{"bad email", RegisterRequest{Username: "x", Email: "nope", Password: "secret1"}},
		{"short password", RegisterRequest{Username: "x", Email: "a@b.c", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Username: "nurse", Email: "n1@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(ctx, RegisterRequest{Username: "NURSE", Email: "n2@example.com", Password: "secret1"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterRequest{Username: "drjones", Email: "j@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := svc.Login(ctx, LoginRequest{Username: "drjones", Password: "hunter22"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token == "" || resp.User.ID != u.ID {
		t.Errorf("resp = %+v", resp)
	}
	if len(rec.events) != 1 || rec.events[0].Action != "login" {
		t.Errorf("events = %+v", rec.events)
	}

	if _, err := svc.Login(ctx, LoginRequest{Username: "drjones", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "hunter22"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestCreate_Role(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateRequest{
		RegisterRequest: RegisterRequest{Username: "boss", Email: "boss@example.com", Password: "secret1"},
		Role:            auth.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != auth.RoleAdmin {
		t.Errorf("role = %q", u.Role)
	}
	_, err = svc.Create(ctx, CreateRequest{
		RegisterRequest: RegisterRequest{Username: "bad", Email: "bad@example.com", Password: "secret1"},
		Role:            "superuser",
	})
	if err == nil {
		t.Error("expected invalid role error")
	}
}

func TestUpdate(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()
	u, _ := svc.Register(ctx, RegisterRequest{Username: "a1", Email: "a1@example.com", Password: "secret1"})
	_, _ = svc.Register(ctx, RegisterRequest{Username: "a2", Email: "a2@example.com", Password: "secret1"})

	role := auth.RoleAdmin
	updated, err := svc.Update(ctx, u.ID, UpdateRequest{Role: &role})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Role != auth.RoleAdmin {
		t.Errorf("role = %q", updated.Role)
	}
	if len(rec.events) != 1 || rec.events[0].Action != "update" {
		t.Errorf("events = %+v", rec.events)
	}

	taken := "a2"
	if _, err := svc.Update(ctx, u.ID, UpdateRequest{Username: &taken}); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}

	pw := "newpass1"
	if _, err := svc.Update(ctx, u.ID, UpdateRequest{Password: &pw}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "a1", Password: "newpass1"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo, rec := newTestService()
	ctx := context.Background()
	admin, _ := svc.CreateAdmin(ctx, "root", "root@example.com", "secret1")
	target, _ := svc.Register(ctx, RegisterRequest{Username: "temp", Email: "temp@example.com", Password: "secret1"})

	if err := svc.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Errorf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, target.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.store[target.ID]; ok {
		t.Error("expected user to be removed")
	}
	if len(rec.events) != 1 || rec.events[0].ResourceID != target.ID.String() || rec.events[0].UserID != admin.ID.String() {
		t.Errorf("events = %+v", rec.events)
	}
	if err := svc.Delete(ctx, admin.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
