package skills

import (
	"fmt"
	"sort"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

const (
	focusMinUses        = 3
	focusMaxProficiency = 50.0
	gapMaxProficiency   = 30.0
)

// Focus suggests a skill the worker uses often but is weak at.
type Focus struct {
	Skill       string  `json:"skill"`
	Proficiency float64 `json:"current_proficiency"`
	Uses        int     `json:"frequency"`
	Level       string  `json:"level"`
	Category    string  `json:"category"`
	Reason      string  `json:"reason"`
}

// Usage counts required skills across completed items, case-insensitively.
// The first spelling seen names the entry.
type Usage struct {
	names  map[string]string
	counts map[string]int
}

// NewUsage returns an empty tally.
func NewUsage() *Usage {
	return &Usage{names: make(map[string]string), counts: make(map[string]int)}
}

// Add counts each distinct skill of one item once.
func (u *Usage) Add(required []string) {
	seen := make(map[string]struct{}, len(required))
	for _, name := range required {
		k := model.SkillKey(name)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := u.names[k]; !ok {
			u.names[k] = name
		}
		u.counts[k]++
	}
}

// FocusAreas returns up to limit skills used at least three times whose
// proficiency is under 50, most used first.
func FocusAreas(u *Usage, m map[string]float64, limit int) []Focus {
	var out []Focus
	for k, uses := range u.counts {
		if uses < focusMinUses {
			continue
		}
		name := u.names[k]
		p := 0.0
		if stored, ok := Key(m, name); ok {
			name, p = stored, m[stored]
		}
		if p >= focusMaxProficiency {
			continue
		}
		out = append(out, Focus{
			Skill:       name,
			Proficiency: p,
			Uses:        uses,
			Level:       LevelLabel(p),
			Category:    Category(name),
			Reason:      fmt.Sprintf("Used %d times with %.0f%% proficiency", uses, p),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].Skill < out[j].Skill
	})
	return head(out, limit)
}

// Gap is a skill open items require that the worker barely has.
type Gap struct {
	Skill          string   `json:"skill"`
	Proficiency    float64  `json:"current_proficiency"`
	RequiredBy     int      `json:"required_tasks"`
	AvgDifficulty  float64  `json:"avg_task_difficulty"`
	ExampleItemIDs []string `json:"item_ids"`
	Category       string   `json:"category"`
}

const gapExamples = 3

// Gaps lists skills required by open items where proficiency is under 30,
// ordered by how many items need them.
func Gaps(open []model.WorkItem, m map[string]float64) []Gap {
	type acc struct {
		name  string
		diff  int
		items []string
	}
	byKey := make(map[string]*acc)
	for _, it := range open {
		for k := range distinct(it.RequiredSkills) {
			a, ok := byKey[k]
			if !ok {
				a = &acc{name: firstSpelling(it.RequiredSkills, k)}
				byKey[k] = a
			}
			a.diff += it.Difficulty
			a.items = append(a.items, it.ID)
		}
	}

	var out []Gap
	for _, a := range byKey {
		p := 0.0
		if stored, ok := Key(m, a.name); ok {
			p = m[stored]
		}
		if p >= gapMaxProficiency {
			continue
		}
		out = append(out, Gap{
			Skill:          a.name,
			Proficiency:    p,
			RequiredBy:     len(a.items),
			AvgDifficulty:  float64(a.diff) / float64(len(a.items)),
			ExampleItemIDs: head(a.items, gapExamples),
			Category:       Category(a.name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequiredBy != out[j].RequiredBy {
			return out[i].RequiredBy > out[j].RequiredBy
		}
		return out[i].Skill < out[j].Skill
	})
	return out
}

func distinct(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		if k := model.SkillKey(n); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

func firstSpelling(names []string, key string) string {
	for _, n := range names {
		if model.SkillKey(n) == key {
			return n
		}
	}
	return key
}
