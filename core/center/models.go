package center

import (
	"time"

	"github.com/mutabaa-app/mutabaa/core"
)

// Center is a named grouping students and records reference by name,
// not by identifier; renaming a center does not rewrite those references.
type Center struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`       // unique, case-insensitive
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewCenter struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewCenter) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}
