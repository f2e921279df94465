package matching

import (
	"math"
	"strings"
	"unicode/utf8"

	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/domain/skill"

	"github.com/google/uuid"
)

const (
	exactWeight    = 1.0
	partialWeight  = 0.7
	categoryWeight = 0.5

	minPartialRunes = 3
)

// Cosine works on L2-normalised sparse vectors, so the result is their dot product in [0,1].
func Cosine(a, b feature.TermVector) float64 {
	if len(a.Indices) == 0 || len(b.Indices) == 0 {
		return 0
	}
	dot, na, nb := 0.0, 0.0, 0.0
	for _, x := range a.Values {
		na += x * x
	}
	for _, x := range b.Values {
		nb += x * x
	}
	if na == 0 || nb == 0 {
		return 0
	}
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

type SkillSetScore struct {
	Score      float64
	Applicable bool
	Matched    []recommendation.SkillRef
	Related    []recommendation.SkillRef
	Missing    []recommendation.SkillRef
}

// ScoreSkillSet rates how well candidate skills cover one job skill set. Each job skill takes its
// best candidate match: exact 1.0, partial name 0.7, same category 0.5.
func ScoreSkillSet(jobSkills []skill.Skill, candidateSkills []candidate.Skill, catalog *skill.Catalog, categoryWeighted bool) SkillSetScore {
	set := dedupSkills(jobSkills, catalog)
	out := SkillSetScore{
		Matched: []recommendation.SkillRef{},
		Related: []recommendation.SkillRef{},
		Missing: []recommendation.SkillRef{},
	}
	if len(set) == 0 {
		return out
	}
	out.Applicable = true

	cands := make([]skill.Skill, 0, len(candidateSkills))
	for _, cs := range candidateSkills {
		cands = append(cands, catalog.Canonical(cs.Skill))
	}

	sum, denom := 0.0, 0.0
	for _, js := range set {
		w, kind, via := bestMatch(js, cands)
		scale := 1.0
		if categoryWeighted {
			scale = js.Category.Weight()
		}
		sum += w * scale
		denom += scale

		ref := recommendation.SkillRef{ID: js.ID, Name: js.Name, Match: kind, Via: via}
		switch kind {
		case recommendation.MatchExact, recommendation.MatchPartial:
			out.Matched = append(out.Matched, ref)
		case recommendation.MatchCategory:
			out.Related = append(out.Related, ref)
			out.Missing = append(out.Missing, recommendation.SkillRef{ID: js.ID, Name: js.Name})
		default:
			out.Missing = append(out.Missing, ref)
		}
	}

	if denom > 0 {
		out.Score = math.Min(1, sum/denom)
	}
	return out
}

func bestMatch(js skill.Skill, cands []skill.Skill) (float64, recommendation.MatchKind, string) {
	best, kind, via := 0.0, recommendation.MatchKind(""), ""
	jn := skill.Normalize(js.Name)
	for _, cs := range cands {
		cn := skill.Normalize(cs.Name)
		switch {
		case sameSkill(js, cs, jn, cn):
			return exactWeight, recommendation.MatchExact, cs.Name
		case best < partialWeight && partialName(jn, cn):
			best, kind, via = partialWeight, recommendation.MatchPartial, cs.Name
		case best < categoryWeight && js.Category != skill.CategoryOther && js.Category == cs.Category:
			best, kind, via = categoryWeight, recommendation.MatchCategory, cs.Name
		}
	}
	return best, kind, via
}

func sameSkill(a, b skill.Skill, an, bn string) bool {
	if a.ID != uuid.Nil && a.ID == b.ID {
		return true
	}
	if an != "" && an == bn {
		return true
	}
	for _, syn := range b.Synonyms {
		if skill.Normalize(syn) == an {
			return true
		}
	}
	for _, syn := range a.Synonyms {
		if skill.Normalize(syn) == bn {
			return true
		}
	}
	return false
}

func partialName(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < minPartialRunes {
		return false
	}
	return strings.Contains(long, short)
}

// dedupSkills resolves job skills against the catalog and drops repeats.
func dedupSkills(in []skill.Skill, catalog *skill.Catalog) []skill.Skill {
	out := make([]skill.Skill, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = catalog.Canonical(s)
		key := s.ID.String()
		if s.ID == uuid.Nil {
			key = "name:" + skill.Normalize(s.Name)
		}
		if _, ok := seen[key]; ok || (s.ID == uuid.Nil && skill.Normalize(s.Name) == "") {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CombineSkillScores blends required and preferred scores with share going to required.
// When only one side applies it stands alone.
func CombineSkillScores(required, preferred SkillSetScore, share float64) (float64, bool) {
	switch {
	case required.Applicable && preferred.Applicable:
		return share*required.Score + (1-share)*preferred.Score, true
	case required.Applicable:
		return required.Score, true
	case preferred.Applicable:
		return preferred.Score, true
	default:
		return 0, false
	}
}
