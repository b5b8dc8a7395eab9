package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

var (
	ErrNotFound            = errors.New("patient not found")
	ErrDuplicateIdentifier = errors.New("patient identifier already exists")
)

// Patient maps to the patient table.
type Patient struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Identifier string     `db:"identifier" json:"identifier"`
	FamilyName string     `db:"family_name" json:"family_name"`
	GivenName  string     `db:"given_name" json:"given_name"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender     *string    `db:"gender" json:"gender,omitempty"`
	Address    *string    `db:"address" json:"address,omitempty"`
	City       *string    `db:"city" json:"city,omitempty"`
	State      *string    `db:"state" json:"state,omitempty"`
	PostalCode *string    `db:"postal_code" json:"postal_code,omitempty"`
	Phone      *string    `db:"phone" json:"phone,omitempty"`
	Email      *string    `db:"email" json:"email,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns "Given Family".
func (p *Patient) FullName() string {
	return p.GivenName + " " + p.FamilyName
}

// Values exposes the patient's own searchable attributes to htql.Match.
func (p *Patient) Values(kind htql.Kind, attr string) []string {
	if kind != htql.KindPatient {
		return nil
	}
	switch attr {
	case "family":
		return []string{p.FamilyName}
	case "given":
		return []string{p.GivenName}
	case "identifier":
		return []string{p.Identifier}
	case "gender":
		return optional(p.Gender)
	case "city":
		return optional(p.City)
	case "state":
		return optional(p.State)
	}
	return nil
}

func optional(s *string) []string {
	if s == nil {
		return nil
	}
	return []string{*s}
}
