package tables

import (
	"time"

	"github.com/google/uuid"
)

// User is the built-in proposable record type: recipient lookup for
// proposals addressed at "User" resolves against this table.
type User struct {
	tableName struct{}  `bun:"table:users,alias:u"`
	Id        uuid.UUID `json:"id" bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email     string    `json:"email" bun:"email,unique,notnull"`
	Name      string    `json:"name" bun:"name,notnull,default:''"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull,default:now()"`
}
