package specification

import "gorm.io/gorm"

// Specification is a composable query refinement applied to an attachment
// repository query before execution.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
