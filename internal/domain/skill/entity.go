package skill

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryProgramming Category = "programming"
	CategoryFrontend    Category = "frontend"
	CategoryBackend     Category = "backend"
	CategoryDatabase    Category = "database"
	CategoryDevOps      Category = "devops"
	CategoryMobile      Category = "mobile"
	CategoryTesting     Category = "testing"
	CategoryOther       Category = "other"
)

var categoryWeights = map[Category]float64{
	CategoryProgramming: 1.0,
	CategoryBackend:     0.9,
	CategoryFrontend:    0.9,
	CategoryDatabase:    0.85,
	CategoryDevOps:      0.8,
	CategoryMobile:      0.8,
	CategoryTesting:     0.7,
	CategoryOther:       0.5,
}

// ParseCategory maps free-form catalog input onto a known category; anything else is other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryWeights[c]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) Weight() float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return categoryWeights[CategoryOther]
}

type Skill struct {
	ID        uuid.UUID
	Name      string
	Category  Category
	Synonyms  []string
	CreatedAt time.Time
}

// Normalize lower-cases and collapses whitespace so names compare reliably.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
