package app

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ang60/strathconnect-go/cmd/internal/api"
	"github.com/ang60/strathconnect-go/cmd/internal/auth/session"
)

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		p, err := a.promptLine("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	id, err := a.sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>", id.Name, id.Email)
	if id.Role != "" {
		fmt.Fprintf(a.out, " (%s)", id.Role)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	department := fs.String("department", "", "department (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		p, err := a.promptLine("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	id, err := a.sessions.Register(ctx, api.RegisterParams{
		Name:       *name,
		Email:      *email,
		Password:   *password,
		Department: *department,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s <%s>. A role will be assigned by an administrator.\n", id.Name, id.Email)
	return nil
}

func (a *App) cmdLogout(ctx context.Context) error {
	a.sessions.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) cmdWhoami() error {
	st := a.sessions.State()
	if st.Phase != session.PhaseAuthenticated || st.User == nil {
		return fmt.Errorf("not logged in")
	}
	u := st.User
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	if u.Role != "" {
		fmt.Fprintf(a.out, "role:       %s\n", u.Role)
	}
	if u.Department != "" {
		fmt.Fprintf(a.out, "department: %s\n", u.Department)
	}
	return nil
}

func (a *App) cmdRefresh(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	id, err := a.sessions.RefreshUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session refreshed for %s <%s>\n", id.Name, id.Email)
	return nil
}

func (a *App) cmdPrograms(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		programs, err := a.client.Programs(ctx)
		if err != nil {
			return err
		}
		if len(programs) == 0 {
			fmt.Fprintln(a.out, "No programs.")
			return nil
		}
		for _, p := range programs {
			fmt.Fprintf(a.out, "%s  %-24s  %s\n", p.ID, p.Name, p.Status)
		}
		return nil
	case "create":
		fs := flag.NewFlagSet("programs create", flag.ContinueOnError)
		name := fs.String("name", "", "program name")
		description := fs.String("description", "", "program description")
		mentee := fs.String("mentee", "", "mentee user ID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := a.client.CreateProgram(ctx, api.CreateProgramParams{
			Name:        *name,
			Description: *description,
			MenteeID:    *mentee,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created program %s (%s)\n", p.Name, p.ID)
		return nil
	default:
		return fmt.Errorf("unknown programs action %q", action)
	}
}

func (a *App) cmdGoals(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		goals, err := a.client.Goals(ctx)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Fprintln(a.out, "No goals.")
			return nil
		}
		for _, g := range goals {
			due := ""
			if g.DueDate != nil {
				due = g.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(a.out, "%s  %-32s  %-12s  %s\n", g.ID, g.Title, g.Status, due)
		}
		return nil
	case "create":
		fs := flag.NewFlagSet("goals create", flag.ContinueOnError)
		title := fs.String("title", "", "goal title")
		description := fs.String("description", "", "goal description")
		program := fs.String("program", "", "program ID")
		due := fs.String("due", "", "due date (YYYY-MM-DD)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		params := api.CreateGoalParams{
			ProgramID:   *program,
			Title:       *title,
			Description: *description,
		}
		if *due != "" {
			d, err := time.Parse("2006-01-02", *due)
			if err != nil {
				return fmt.Errorf("invalid -due %q: %w", *due, err)
			}
			params.DueDate = &d
		}
		g, err := a.client.CreateGoal(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created goal %s (%s)\n", g.Title, g.ID)
		return nil
	case "status":
		fs := flag.NewFlagSet("goals status", flag.ContinueOnError)
		id := fs.String("id", "", "goal ID")
		status := fs.String("status", "", "new status")
		if err := fs.Parse(args); err != nil {
			return err
		}
		g, err := a.client.UpdateGoalStatus(ctx, *id, *status)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Goal %s is now %s\n", g.Title, g.Status)
		return nil
	default:
		return fmt.Errorf("unknown goals action %q", action)
	}
}

func (a *App) cmdSessions(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		sessions, err := a.client.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(a.out, "No sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(a.out, "%s  %s  %-12s  %s\n", s.ID, s.ScheduledAt.Format(time.RFC3339), s.Status, s.Notes)
		}
		return nil
	case "schedule":
		fs := flag.NewFlagSet("sessions schedule", flag.ContinueOnError)
		program := fs.String("program", "", "program ID")
		at := fs.String("at", "", "start time (RFC 3339)")
		duration := fs.Int("duration", 60, "duration in minutes")
		notes := fs.String("notes", "", "agenda notes")
		if err := fs.Parse(args); err != nil {
			return err
		}
		when, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid -at %q: %w", *at, err)
		}
		s, err := a.client.ScheduleSession(ctx, api.ScheduleSessionParams{
			ProgramID:   *program,
			ScheduledAt: when,
			Duration:    *duration,
			Notes:       *notes,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Scheduled session %s at %s\n", s.ID, s.ScheduledAt.Format(time.RFC3339))
		return nil
	default:
		return fmt.Errorf("unknown sessions action %q", action)
	}
}

func (a *App) cmdConversations(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list":
		convs, err := a.client.Conversations(ctx)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Fprintln(a.out, "No conversations.")
			return nil
		}
		for _, c := range convs {
			fmt.Fprintf(a.out, "%s  %-32s  %s\n", c.ID, strings.Join(c.Participants, ", "), c.LastMessage)
		}
		return nil
	case "messages":
		fs := flag.NewFlagSet("conversations messages", flag.ContinueOnError)
		id := fs.String("id", "", "conversation ID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		msgs, err := a.client.Messages(ctx, *id)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Fprintf(a.out, "[%s] %s: %s\n", m.SentAt.Format("15:04"), m.SenderID, m.Body)
		}
		return nil
	case "send":
		fs := flag.NewFlagSet("conversations send", flag.ContinueOnError)
		id := fs.String("id", "", "conversation ID")
		body := fs.String("body", "", "message body")
		if err := fs.Parse(args); err != nil {
			return err
		}
		m, err := a.client.SendMessage(ctx, *id, *body)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Sent %s\n", m.ID)
		return nil
	default:
		return fmt.Errorf("unknown conversations action %q", action)
	}
}

func (a *App) cmdPending(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	users, err := a.client.PendingUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No pending users.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%s  %-24s  %s\n", u.ID, u.Name, u.Email)
	}
	return nil
}

func (a *App) cmdSetRole(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	user := fs.String("user", "", "user ID")
	role := fs.String("role", "", "role to assign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.client.AssignRole(ctx, *user, *role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", u.Name, u.Role)
	return nil
}

func (a *App) promptLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	r := bufio.NewReader(a.in)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
