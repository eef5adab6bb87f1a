// Package skills holds the proficiency update and reporting rules of the
// skill ledger. Functions operate on plain skill maps and never fail.
package skills

import (
	"sort"

	"github.com/shaanlabs/Tekista/internal/domain/model"
)

// Ledger constants.
const (
	// SoftCap is where proficiency growth starts diminishing.
	SoftCap = 100.0
	// diminishingRate scales growth above SoftCap.
	diminishingRate = 0.1

	baseGrowth      = 1.0
	onTimeGrowth    = 1.2
	difficultyScale = 10.0
)

// Grow returns current + amount with diminishing returns above SoftCap. The
// part of the result above the cap grows at a tenth of the rate, so a call
// never decreases proficiency and adds at most amount*0.1 beyond the cap.
// Negative amounts count as zero.
func Grow(current, amount float64) float64 {
	if amount <= 0 {
		return current
	}
	if current >= SoftCap {
		return current + amount*diminishingRate
	}
	next := current + amount
	if next > SoftCap {
		return SoftCap + (next-SoftCap)*diminishingRate
	}
	return next
}

// PriorityMultiplier scales growth by item priority.
func PriorityMultiplier(p model.Priority) float64 {
	switch p {
	case model.PriorityHigh:
		return 1.5
	case model.PriorityMedium:
		return 1.2
	default:
		return 1.0
	}
}

// CompletionGrowth is the proficiency granted per required skill when an item
// is completed.
func CompletionGrowth(difficulty int, p model.Priority, onTime bool) float64 {
	g := baseGrowth * (1 + float64(max(difficulty, 0))/difficultyScale) * PriorityMultiplier(p)
	if onTime {
		g *= onTimeGrowth
	}
	return g
}

// Key finds the stored key of name in m, case-insensitively.
func Key(m map[string]float64, name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	want := model.SkillKey(name)
	for k := range m {
		if model.SkillKey(k) == want {
			return k, true
		}
	}
	return "", false
}

// Put sets name to value, keeping the casing of an existing entry.
// It returns the key the value was stored under.
func Put(m map[string]float64, name string, value float64) string {
	key, ok := Key(m, name)
	if !ok {
		key = name
	}
	m[key] = max(value, 0)
	return key
}

// Increment grows name by amount and returns the stored key and new value.
// Missing skills start at zero.
func Increment(m map[string]float64, name string, amount float64) (string, float64) {
	key, ok := Key(m, name)
	if !ok {
		key = name
	}
	next := Grow(m[key], amount)
	m[key] = next
	return key, next
}

// Remove deletes name case-insensitively and reports whether it existed.
func Remove(m map[string]float64, name string) bool {
	key, ok := Key(m, name)
	if ok {
		delete(m, key)
	}
	return ok
}

// Skill is a ranked ledger entry.
type Skill struct {
	Name        string  `json:"name"`
	Proficiency float64 `json:"proficiency"`
	Level       string  `json:"level"`
	Category    string  `json:"category"`
}

func entries(m map[string]float64) []Skill {
	out := make([]Skill, 0, len(m))
	for k, v := range m {
		out = append(out, Skill{Name: k, Proficiency: v, Level: LevelLabel(v), Category: Category(k)})
	}
	return out
}

// Top returns the n strongest skills, ties broken by name.
func Top(m map[string]float64, n int) []Skill {
	s := entries(m)
	sort.Slice(s, func(i, j int) bool {
		if s[i].Proficiency != s[j].Proficiency {
			return s[i].Proficiency > s[j].Proficiency
		}
		return s[i].Name < s[j].Name
	})
	return head(s, n)
}

// Weakest returns the n weakest skills, ties broken by name.
func Weakest(m map[string]float64, n int) []Skill {
	s := entries(m)
	sort.Slice(s, func(i, j int) bool {
		if s[i].Proficiency != s[j].Proficiency {
			return s[i].Proficiency < s[j].Proficiency
		}
		return s[i].Name < s[j].Name
	})
	return head(s, n)
}

func head[T any](s []T, n int) []T {
	if n < 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

// LevelLabel names a proficiency band.
func LevelLabel(p float64) string {
	switch {
	case p < 10:
		return "Beginner"
	case p < 25:
		return "Novice"
	case p < 50:
		return "Intermediate"
	case p < 75:
		return "Advanced"
	case p < 100:
		return "Expert"
	default:
		return "Master"
	}
}
