package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
)

// Catalog is an immutable, ordered snapshot of the skill catalog. The order of Skills is the
// order of the skill dimensions in every numeric feature vector.
type Catalog struct {
	skills  []Skill
	byID    map[uuid.UUID]int
	byName  map[string]int
	fingerp string
}

func NewCatalog(items []Skill) *Catalog {
	skills := make([]Skill, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, s := range items {
		if s.ID == uuid.Nil {
			continue
		}
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		if s.Category == "" {
			s.Category = CategoryOther
		}
		skills = append(skills, s)
	}

	sort.SliceStable(skills, func(i, j int) bool {
		ni, nj := Normalize(skills[i].Name), Normalize(skills[j].Name)
		if ni == nj {
			return skills[i].ID.String() < skills[j].ID.String()
		}
		return ni < nj
	})

	c := &Catalog{
		skills: skills,
		byID:   make(map[uuid.UUID]int, len(skills)),
		byName: make(map[string]int, len(skills)*2),
	}

	h := sha256.New()
	for i, s := range skills {
		c.byID[s.ID] = i
		h.Write([]byte(s.ID.String()))
		if n := Normalize(s.Name); n != "" {
			if _, ok := c.byName[n]; !ok {
				c.byName[n] = i
			}
		}
	}
	// synonyms never shadow a canonical name
	for i, s := range skills {
		for _, syn := range s.Synonyms {
			n := Normalize(syn)
			if n == "" {
				continue
			}
			if _, ok := c.byName[n]; !ok {
				c.byName[n] = i
			}
		}
	}
	c.fingerp = hex.EncodeToString(h.Sum(nil))
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.skills)
}

// Skills returns a copy of the ordered catalog.
func (c *Catalog) Skills() []Skill {
	if c == nil {
		return nil
	}
	out := make([]Skill, len(c.skills))
	copy(out, c.skills)
	return out
}

func (c *Catalog) IndexOf(id uuid.UUID) (int, bool) {
	if c == nil {
		return -1, false
	}
	i, ok := c.byID[id]
	return i, ok
}

func (c *Catalog) ByID(id uuid.UUID) (Skill, bool) {
	i, ok := c.IndexOf(id)
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Resolve finds a catalog entry by canonical name or synonym.
func (c *Catalog) Resolve(name string) (Skill, bool) {
	if c == nil {
		return Skill{}, false
	}
	i, ok := c.byName[Normalize(name)]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Canonical returns the catalog version of s when it can be resolved, else s normalised.
func (c *Catalog) Canonical(s Skill) Skill {
	if c != nil {
		if s.ID != uuid.Nil {
			if found, ok := c.ByID(s.ID); ok {
				return found
			}
		}
		if found, ok := c.Resolve(s.Name); ok {
			return found
		}
	}
	if s.Category == "" {
		s.Category = CategoryOther
	}
	return s
}

func (c *Catalog) Fingerprint() string {
	if c == nil {
		return ""
	}
	return c.fingerp
}
