package domain

import "time"

// Role is the explicit authorization flag carried by a user record.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleWorker     Role = "worker"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleWorker:
		return true
	}
	return false
}

// Sector is the organizational unit a user belongs to.
type Sector string

const (
	SectorBilling        Sector = "Faturamento"
	SectorReceivables    Sector = "Contas a Receber"
	SectorSSMA           Sector = "SSMA"
	SectorAdministrative Sector = "Administrativo/Comercial"
	SectorFinance        Sector = "Financeiro"
)

// Sectors lists every sector in display order.
func Sectors() []Sector {
	return []Sector{SectorBilling, SectorReceivables, SectorSSMA, SectorAdministrative, SectorFinance}
}

// Valid reports whether s belongs to the fixed sector enumeration.
func (s Sector) Valid() bool {
	for _, known := range Sectors() {
		if s == known {
			return true
		}
	}
	return false
}

// User is the persisted player record.
type User struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   Role     `json:"role"`
	Score  int      `json:"score"`
	Badges []string `json:"badges"`
	Sector Sector   `json:"sector"`
	Avatar string   `json:"avatar,omitempty"`
}

// HasBadge reports whether the user already earned badge.
func (u User) HasBadge(badge string) bool {
	for _, b := range u.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// Difficulty grades missions and quizzes.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Mission is a catalog entry plus the per-rotation completion flag.
type Mission struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Points        int        `json:"points"`
	Difficulty    Difficulty `json:"difficulty"`
	Icon          string     `json:"icon"`
	Category      string     `json:"category"`
	RequiresProof bool       `json:"requiresProof"`
	Completed     bool       `json:"completed"`
}

// MissionBoard is the active rotation as shown to a user.
type MissionBoard struct {
	Missions         []Mission     `json:"missions"`
	Anchor           time.Time     `json:"anchor"`
	Remaining        time.Duration `json:"-"`
	RemainingSeconds int64         `json:"remainingSeconds"`
	Countdown        string        `json:"countdown"`
	Rotated          bool          `json:"rotated"`
}

// Question is a catalog question; CorrectOption indexes Options.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a fixed ordered question bank. Points is the award for a perfect run.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   []Question `json:"questions"`
}

// QuizSummary is the catalog view of a quiz without its questions.
type QuizSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   int        `json:"questions"`
}

// Summary strips the question bank.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Points:      q.Points,
		Category:    q.Category,
		Difficulty:  q.Difficulty,
		Questions:   len(q.Questions),
	}
}

// TimeFilter selects the scaled leaderboard view.
type TimeFilter string

const (
	FilterAll     TimeFilter = "all"
	FilterMonthly TimeFilter = "monthly"
	FilterWeekly  TimeFilter = "weekly"
)

// Movement describes how a user's rank changed since the previous observation.
type Movement string

const (
	MovementUp        Movement = "up"
	MovementDown      Movement = "down"
	MovementUnchanged Movement = "unchanged"
	MovementNew       Movement = "new"
)

// LeaderboardEntry is a derived ranking row.
type LeaderboardEntry struct {
	UserID       string   `json:"userId"`
	DisplayName  string   `json:"displayName"`
	Sector       Sector   `json:"sector"`
	Score        int      `json:"score"`
	DisplayScore int      `json:"displayScore"`
	Rank         int      `json:"rank"`
	Position     int      `json:"position"`
	Tier         string   `json:"tier"`
	Movement     Movement `json:"movement,omitempty"`
}

// Leaderboard is the individual board for one filter.
type Leaderboard struct {
	Filter     TimeFilter         `json:"filter"`
	Entries    []LeaderboardEntry `json:"entries"`
	ViewerRank int                `json:"viewerRank,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// SectorEntry aggregates the display scores of a sector's members.
type SectorEntry struct {
	Sector  Sector `json:"sector"`
	Score   int    `json:"score"`
	Members int    `json:"members"`
	Rank    int    `json:"rank"`
}

// ProofClaim is the request sent to the verification oracle.
type ProofClaim struct {
	Title       string
	Description string
	Image       []byte
	MIMEType    string
}

// Verdict is the verification oracle's answer.
type Verdict struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

// IncidentType classifies a safety report.
type IncidentType string

const (
	IncidentNearMiss   IncidentType = "near-miss"
	IncidentHazard     IncidentType = "hazard"
	IncidentAccident   IncidentType = "accident"
	IncidentErgonomics IncidentType = "ergonomics"
)

// Severity grades a safety report.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IncidentStatus tracks a report through investigation.
type IncidentStatus string

const (
	StatusOpen          IncidentStatus = "open"
	StatusInvestigating IncidentStatus = "investigating"
	StatusResolved      IncidentStatus = "resolved"
)

// Incident is a persisted safety report.
type Incident struct {
	ID          string         `json:"id"`
	ReporterID  string         `json:"reporterId"`
	Type        IncidentType   `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      IncidentStatus `json:"status"`
	Image       []byte         `json:"image,omitempty"`
	AIAnalysis  string         `json:"aiAnalysis,omitempty"`
}

// Priority ranks a checklist item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ChecklistItem is a single safety check.
type ChecklistItem struct {
	Check    string   `json:"check"`
	Priority Priority `json:"priority"`
}

// Checklist is the checklist-generation oracle's answer.
type Checklist struct {
	Task  string          `json:"task"`
	Items []ChecklistItem `json:"items"`
}
