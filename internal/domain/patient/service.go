package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

const dateLayout = "2006-01-02"

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

// Input is the create/update payload. Dates use YYYY-MM-DD.
type Input struct {
	Identifier string  `json:"identifier"`
	FamilyName string  `json:"family_name"`
	GivenName  string  `json:"given_name"`
	BirthDate  *string `json:"birth_date"`
	Gender     *string `json:"gender"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
}

func (in Input) apply(p *Patient) error {
	p.Identifier = strings.TrimSpace(in.Identifier)
	p.FamilyName = strings.TrimSpace(in.FamilyName)
	p.GivenName = strings.TrimSpace(in.GivenName)
	if p.Identifier == "" {
		return fmt.Errorf("identifier is required")
	}
	if p.FamilyName == "" {
		return fmt.Errorf("family_name is required")
	}
	if p.GivenName == "" {
		return fmt.Errorf("given_name is required")
	}

	p.BirthDate = nil
	if in.BirthDate != nil && *in.BirthDate != "" {
		d, err := time.Parse(dateLayout, *in.BirthDate)
		if err != nil {
			return fmt.Errorf("birth_date must be YYYY-MM-DD")
		}
		if d.After(time.Now()) {
			return fmt.Errorf("birth_date cannot be in the future")
		}
		p.BirthDate = &d
	}
	if in.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*in.Gender))
		if g != "" && !validGenders[g] {
			return fmt.Errorf("invalid gender: %s", *in.Gender)
		}
		in.Gender = &g
	}
	p.Gender = blankToNil(in.Gender)
	p.Address = blankToNil(in.Address)
	p.City = blankToNil(in.City)
	p.State = blankToNil(in.State)
	p.PostalCode = blankToNil(in.PostalCode)
	p.Phone = blankToNil(in.Phone)
	p.Email = blankToNil(in.Email)
	if p.Email != nil && !strings.Contains(*p.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	var p Patient
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Filter(ctx, pred, limit, offset)
}
