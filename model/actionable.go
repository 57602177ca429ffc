package model

// Priority levels for actionable points.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Status values for actionable points. Carried through unchanged; no core
// logic transitions them.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ActionablePoint is a task-like item extracted from a transcript.
// DueDate is free-form text; downstream calendar export parses it defensively.
type ActionablePoint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Status      string `json:"status"`
}

// PriorityColor maps a priority to its display color. Unknown values render
// as a neutral grey.
func (p ActionablePoint) PriorityColor() string {
	switch p.Priority {
	case PriorityLow:
		return "#4CAF50"
	case PriorityMedium:
		return "#FF9800"
	case PriorityHigh:
		return "#FF5722"
	case PriorityUrgent:
		return "#F44336"
	default:
		return "#666"
	}
}
