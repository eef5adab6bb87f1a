package skills

import "github.com/shaanlabs/Tekista/internal/domain/model"

// CategoryOther groups skills outside the known catalogue.
const CategoryOther = "other"

var catalogue = map[string][]string{
	"backend":  {"Python", "Django", "Flask", "Node.js", "Express", "Java", "Spring", "C#", ".NET", "Go", "Rust"},
	"frontend": {"JavaScript", "React", "Vue.js", "Angular", "HTML", "CSS", "TypeScript", "Svelte", "Next.js"},
	"database": {"SQL", "PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch", "Firebase"},
	"devops":   {"Docker", "Kubernetes", "AWS", "Azure", "GCP", "CI/CD", "Jenkins", "GitHub Actions"},
	"mobile":   {"React Native", "Flutter", "Swift", "Kotlin", "iOS", "Android"},
	"data":     {"Data Analysis", "Machine Learning", "TensorFlow", "PyTorch", "Pandas", "NumPy"},
	"design":   {"UI Design", "UX Design", "Figma", "Adobe XD", "Sketch", "Prototyping"},
	"soft":     {"Communication", "Leadership", "Project Management", "Problem Solving", "Teamwork"},
}

var categoryIndex = func() map[string]string {
	idx := make(map[string]string)
	for cat, names := range catalogue {
		for _, n := range names {
			idx[model.SkillKey(n)] = cat
		}
	}
	return idx
}()

// Category returns the catalogue category of a skill, or CategoryOther.
func Category(name string) string {
	if c, ok := categoryIndex[model.SkillKey(name)]; ok {
		return c
	}
	return CategoryOther
}

// ByCategory groups a skill map by category.
func ByCategory(m map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for k, v := range m {
		c := Category(k)
		if out[c] == nil {
			out[c] = make(map[string]float64)
		}
		out[c][k] = v
	}
	return out
}
