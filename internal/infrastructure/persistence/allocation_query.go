package persistence

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// whereAllocationRefers narrows query to rows whose allocations JSON holds an
// entry with key set to id. PostgreSQL matches with jsonb containment against
// the GIN index. Other dialects match the text, so callers confirm on the
// decoded allocations.
func whereAllocationRefers(query *gorm.DB, key string, id uuid.UUID) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		needle, _ := json.Marshal([]map[string]string{{key: id.String()}})
		return query.Where("allocations @> CAST(? AS jsonb)", string(needle))
	}
	return query.Where("CAST(allocations AS TEXT) LIKE ?", "%"+id.String()+"%")
}
