package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the lender identity behind a workspace.
type User struct {
	ID        uuid.UUID `json:"id"`
	Auth0ID   string    `json:"auth0Id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Workspace is the owner scoping key: every loan, cycle and payment belongs
// to exactly one workspace.
type Workspace struct {
	ID        int32     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkspaceRepository defines the interface for workspace persistence operations
type WorkspaceRepository interface {
	GetByID(id int32) (*Workspace, error)
	GetByUserAuth0ID(auth0ID string) (*Workspace, error)
	// GetAllIDs lists every workspace ID, used by periodic replica sync.
	GetAllIDs() ([]int32, error)
	CreateForUser(auth0ID, email string, name *string) (*Workspace, error)
}
