package api

import (
	"context"
	"net/http"
	"net/url"
)

// Resource endpoints are plain bearer-auth JSON passthroughs; everything
// interesting (token attach, refresh-retry, error normalization) happens in
// the shared pipeline.

// Programs lists the mentorship programs visible to the current user.
func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	var out []Program
	if err := c.do(ctx, http.MethodGet, "/programs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProgram creates a mentorship program.
func (c *Client) CreateProgram(ctx context.Context, p CreateProgramParams) (Program, error) {
	var out Program
	if err := c.do(ctx, http.MethodPost, "/programs", p, &out); err != nil {
		return Program{}, err
	}
	return out, nil
}

// Goals lists the current user's goals.
func (c *Client) Goals(ctx context.Context) ([]Goal, error) {
	var out []Goal
	if err := c.do(ctx, http.MethodGet, "/goals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, p CreateGoalParams) (Goal, error) {
	var out Goal
	if err := c.do(ctx, http.MethodPost, "/goals", p, &out); err != nil {
		return Goal{}, err
	}
	return out, nil
}

// UpdateGoalStatus moves a goal to a new status.
func (c *Client) UpdateGoalStatus(ctx context.Context, goalID, status string) (Goal, error) {
	var out Goal
	path := "/goals/" + url.PathEscape(goalID)
	if err := c.do(ctx, http.MethodPatch, path, updateGoalStatusRequest{Status: status}, &out); err != nil {
		return Goal{}, err
	}
	return out, nil
}

// Sessions lists the current user's mentorship sessions.
func (c *Client) Sessions(ctx context.Context) ([]MentorshipSession, error) {
	var out []MentorshipSession
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleSession requests a new mentorship session.
func (c *Client) ScheduleSession(ctx context.Context, p ScheduleSessionParams) (MentorshipSession, error) {
	var out MentorshipSession
	if err := c.do(ctx, http.MethodPost, "/sessions", p, &out); err != nil {
		return MentorshipSession{}, err
	}
	return out, nil
}

// Conversations lists the current user's message threads.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.do(ctx, http.MethodGet, "/communication/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages lists the messages of one conversation.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	path := "/communication/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage appends a message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, body string) (Message, error) {
	var out Message
	path := "/communication/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, sendMessageRequest{Body: body}, &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

// PendingUsers lists accounts awaiting a role assignment. Admin only.
func (c *Client) PendingUsers(ctx context.Context) ([]Identity, error) {
	var out []Identity
	if err := c.do(ctx, http.MethodGet, "/users/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignRole sets a user's role. Admin only.
func (c *Client) AssignRole(ctx context.Context, userID, role string) (Identity, error) {
	var out Identity
	path := "/users/" + url.PathEscape(userID) + "/role"
	if err := c.do(ctx, http.MethodPatch, path, assignRoleRequest{Role: role}, &out); err != nil {
		return Identity{}, err
	}
	return out, nil
}
