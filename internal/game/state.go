package game

// GameStatus represents the lifecycle of a table
type GameStatus string

const (
	StatusInProgress GameStatus = "IN_PROGRESS"
	StatusCompleted  GameStatus = "COMPLETED" // closed by its owner
	StatusCancelled  GameStatus = "CANCELLED" // reaped after going idle
)
