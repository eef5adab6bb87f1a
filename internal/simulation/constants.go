package simulation

import "time"

// Defaults used by the command line front end.
const (
	DefaultOrganization = "sim-org"
	DefaultWorkers      = 20
	DefaultItems        = 200
	DefaultContenders   = 2
	DefaultTimeout      = 10 * time.Second
)

// Client pool configuration.
const (
	clientChannelMultiplier = 2
	progressInterval        = time.Second
)

// Fixture shape.
const (
	maxWeeklyHours    = 40.0
	projects          = 3
	minWorkerSkills   = 2
	maxWorkerSkills   = 4
	maxRequiredSkills = 2
	minProficiency    = 20.0
	proficiencySpread = 70.0
	dueDateShare      = 0.8
	dueWindowDays     = 14
	overdueDays       = 3
	minHoursFactor    = 0.7
	hoursFactorSpread = 0.6
)

var skillCatalogue = []string{
	"Go", "Python", "SQL", "React", "Docker", "Kubernetes", "PostgreSQL", "TypeScript",
}

var priorities = []string{"low", "medium", "high"}
