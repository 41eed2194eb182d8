package club

import (
	"github.com/clubdesk/backend/internal/domain/shared"
)

// Member is a club member owning a ledger
type Member struct {
	shared.BaseEntity
	Name   string
	Email  string
	Active bool
}

// NewMember creates an active member
func NewMember(name, email string) (*Member, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Member name cannot be empty")
	}
	return &Member{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      email,
		Active:     true,
	}, nil
}
