package api

import "time"

// Identity is the backend's representation of the signed-in user. Role is
// free-form and assigned out-of-band by an administrator; new accounts
// carry an empty role until then.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// RegisterParams is the input to Register. Role is intentionally absent.
type RegisterParams struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the shape shared by login, register and refresh.
type authResponse struct {
	User        Identity `json:"user"`
	AccessToken string   `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Program is a mentorship program.
type Program struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MentorID    string    `json:"mentorId,omitempty"`
	MenteeID    string    `json:"menteeId,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateProgramParams is the input to CreateProgram.
type CreateProgramParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MenteeID    string `json:"menteeId,omitempty"`
}

// Goal is a mentee goal tracked inside a program.
type Goal struct {
	ID          string     `json:"id"`
	ProgramID   string     `json:"programId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// CreateGoalParams is the input to CreateGoal.
type CreateGoalParams struct {
	ProgramID   string     `json:"programId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type updateGoalStatusRequest struct {
	Status string `json:"status"`
}

// MentorshipSession is a scheduled meeting between mentor and mentee.
type MentorshipSession struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"programId,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Duration    int       `json:"durationMinutes,omitempty"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

// ScheduleSessionParams is the input to ScheduleSession.
type ScheduleSessionParams struct {
	ProgramID   string    `json:"programId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Duration    int       `json:"durationMinutes,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// Conversation is a message thread between platform users.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is one entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sentAt"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}
