package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/phenofarm/pkg/tokens"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrForbidden  = errors.New("forbidden")  // 403
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409
)

// Actor is the authenticated caller as resolved by the auth middleware.
type Actor struct {
	ID   uuid.UUID
	Role string
	Name string
}

func (a Actor) IsAdmin() bool      { return a.Role == tokens.RoleAdmin }
func (a Actor) IsGrower() bool     { return a.Role == tokens.RoleGrower }
func (a Actor) IsDispensary() bool { return a.Role == tokens.RoleDispensary }

// Owns reports whether the actor may act on a record owned by id.
func (a Actor) Owns(id uuid.UUID) bool {
	return a.IsAdmin() || a.ID == id
}

// Owner is the key under which the actor's client-state slots live.
func (a Actor) Owner() string {
	return a.ID.String()
}

func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func inPercentRange(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrValidation, name)
	}
	return nil
}
