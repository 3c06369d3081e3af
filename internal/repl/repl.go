// Package repl is the interactive front end: free text goes to the analyst,
// slash-less commands manage monitored hosts, proactive jobs, and sessions.
package repl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/google/uuid"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/analyst"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/consts"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/metrics"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/scheduler"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/store"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/wazuh"
)

// REPL wires user input to the analyst and the management commands.
type REPL struct {
	analyst    *analyst.Analyst
	monitoring analyst.Monitoring
	manager    AgentManager
	runner     *scheduler.Runner
	store      store.Store
	sessionID  string

	ctx    context.Context
	cancel context.CancelFunc
	done   bool
}

// AgentManager is the slice of the Wazuh client used by the management
// commands, separate from the analyst's read-only Monitoring view.
type AgentManager interface {
	AddAgent(ctx context.Context, name, ip string, groups []string) wazuh.AddAgentResult
	DeleteAgent(ctx context.Context, agentID string, purge bool) wazuh.DeleteAgentResult
	Agents(ctx context.Context, status string) wazuh.AgentsResult
}

// NewREPL creates a REPL bound to an initial session.
func NewREPL(ctx context.Context, a *analyst.Analyst, mon analyst.Monitoring, mgr AgentManager, runner *scheduler.Runner, st store.Store, sessionID string) *REPL {
	rctx, cancel := context.WithCancel(ctx)
	return &REPL{
		analyst:    a,
		monitoring: mon,
		manager:    mgr,
		runner:     runner,
		store:      st,
		sessionID:  sessionID,
		ctx:        rctx,
		cancel:     cancel,
	}
}

// Run blocks until the user exits or the context is cancelled.
func (r *REPL) Run() error {
	slog.Info("repl.starting", "session_id", r.sessionID)
	fmt.Println("ChatSEC SOC Assistant Ready. Type 'help' for commands, 'exit' to quit.")

	p := prompt.New(
		r.executor,
		r.completer,
		prompt.OptionPrefix("soc> "),
		prompt.OptionTitle("ChatSEC"),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(b *prompt.Buffer) {
				r.done = true
			},
		}),
	)

	p.Run()
	return nil
}

func (r *REPL) executor(input string) {
	text := strings.TrimSpace(input)
	if text == "" {
		return
	}
	if r.ctx.Err() != nil {
		r.done = true
		return
	}

	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		r.done = true
		fmt.Println("Goodbye!")
	case "help":
		r.printHelp()
	case "health":
		r.cmdHealth()
	case "agent":
		r.cmdAgent(fields[1:])
	case "proactive":
		r.cmdProactive(fields[1:])
	case "session":
		r.cmdSession(fields[1:])
	case "sessions":
		r.cmdSessions()
	case "history":
		r.cmdHistory()
	case "stats":
		r.cmdStats()
	default:
		r.chat(text)
	}
}

// chat runs one analyst turn and persists both sides of it.
func (r *REPL) chat(text string) {
	history, err := r.store.Messages(r.ctx, r.sessionID, 0)
	if err != nil {
		slog.Warn("repl.history.failed", "error", err)
	}
	if _, err := r.store.SaveMessage(r.ctx, consts.RoleUser, text, r.sessionID); err != nil {
		slog.Warn("repl.persist.failed", "role", consts.RoleUser, "error", err)
	}

	out := r.analyst.HandleTurn(r.ctx, text, history)
	fmt.Println(out)

	if _, err := r.store.SaveMessage(r.ctx, consts.RoleAssistant, out, r.sessionID); err != nil {
		slog.Warn("repl.persist.failed", "role", consts.RoleAssistant, "error", err)
	}
}

func (r *REPL) cmdHealth() {
	h := r.monitoring.HealthCheck(r.ctx)
	if !h.Success {
		fmt.Printf("Monitoring platform unreachable: %s\n", h.Error)
		return
	}
	fmt.Printf("Connected. Agents: %d total, %d active.\n", h.TotalAgents, h.ActiveAgents)
}

// cmdAgent manages monitored hosts on the platform.
func (r *REPL) cmdAgent(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: agent <add|remove|list> ...")
		return
	}
	switch args[0] {
	case "add":
		if len(args) < 3 {
			fmt.Println("Usage: agent add <name> <ip> [group,group...]")
			return
		}
		var groups []string
		if len(args) >= 4 {
			groups = strings.Split(args[3], ",")
		}
		res := r.manager.AddAgent(r.ctx, args[1], args[2], groups)
		if !res.Success {
			fmt.Printf("Failed to add agent: %s\n", res.Error)
			return
		}
		fmt.Println(res.Message)
		if res.Agent != nil && res.Agent.Key != "" {
			fmt.Printf("Auth key: %s\n", res.Agent.Key)
		}
	case "remove":
		if len(args) < 2 {
			fmt.Println("Usage: agent remove <id>")
			return
		}
		res := r.manager.DeleteAgent(r.ctx, args[1], true)
		if !res.Success {
			fmt.Printf("Failed to remove agent: %s\n", res.Error)
			return
		}
		fmt.Println(res.Message)
	case "list":
		res := r.manager.Agents(r.ctx, "")
		if !res.Success {
			fmt.Printf("Failed to list agents: %s\n", res.Error)
			return
		}
		for _, a := range res.Agents {
			fmt.Printf("%-6s %-24s %-16s %s\n", a.ID, a.Name, a.IP, a.Status)
		}
		fmt.Printf("%d agents total.\n", res.Total)
	default:
		fmt.Printf("Unknown agent subcommand %q\n", args[0])
	}
}

// cmdProactive manages scheduled jobs.
func (r *REPL) cmdProactive(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: proactive <add|remove|pause|resume|status|list> ...")
		return
	}
	switch args[0] {
	case "add":
		if len(args) < 4 {
			fmt.Println("Usage: proactive add <name> <interval_minutes> <prompt...>")
			return
		}
		interval, err := strconv.Atoi(args[2])
		if err != nil || interval <= 0 {
			fmt.Printf("Invalid interval %q: must be a positive number of minutes\n", args[2])
			return
		}
		promptText := strings.Join(args[3:], " ")
		if err := r.runner.Register(r.ctx, args[1], promptText, interval, -1); err != nil {
			fmt.Printf("Failed to register %q: %v\n", args[1], err)
			return
		}
		fmt.Printf("Proactive agent %q registered, firing every %d minutes.\n", args[1], interval)
	case "remove":
		if len(args) < 2 {
			fmt.Println("Usage: proactive remove <name>")
			return
		}
		if err := r.runner.Unregister(r.ctx, args[1]); err != nil {
			fmt.Printf("Failed to remove %q: %v\n", args[1], err)
			return
		}
		fmt.Printf("Proactive agent %q removed.\n", args[1])
	case "pause":
		if len(args) < 2 {
			fmt.Println("Usage: proactive pause <name>")
			return
		}
		if err := r.runner.Pause(args[1]); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("Proactive agent %q paused.\n", args[1])
	case "resume":
		if len(args) < 2 {
			fmt.Println("Usage: proactive resume <name>")
			return
		}
		if err := r.runner.Resume(args[1]); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("Proactive agent %q resumed.\n", args[1])
	case "status":
		if len(args) < 2 {
			fmt.Println("Usage: proactive status <name>")
			return
		}
		st, ok := r.runner.Status(args[1])
		if !ok {
			fmt.Printf("No proactive agent named %q.\n", args[1])
			return
		}
		printStatus(st)
	case "list":
		statuses := r.runner.List()
		if len(statuses) == 0 {
			fmt.Println("No proactive agents registered.")
			return
		}
		for _, st := range statuses {
			printStatus(st)
		}
	case "enable", "disable":
		enabled := args[0] == "enable"
		prefs, err := r.store.Preferences(r.ctx)
		if err != nil {
			fmt.Printf("Failed to read preferences: %v\n", err)
			return
		}
		if err := r.store.UpdatePreferences(r.ctx, enabled, prefs.ProactiveInterval); err != nil {
			fmt.Printf("Failed to update preferences: %v\n", err)
			return
		}
		fmt.Printf("Proactive checks default set to %s (takes effect on next start).\n", args[0])
	default:
		fmt.Printf("Unknown proactive subcommand %q\n", args[0])
	}
}

func printStatus(st scheduler.Status) {
	state := "active"
	if !st.Active {
		state = "paused"
	}
	fmt.Printf("%-20s %s, every %dm, next run %s\n  prompt: %s\n",
		st.Name, state, st.IntervalMinutes, st.NextRun.Format("15:04:05"), st.Prompt)
}

func (r *REPL) cmdSession(args []string) {
	if len(args) == 0 {
		fmt.Printf("Current session: %s\n", r.sessionID)
		return
	}
	switch args[0] {
	case "new":
		r.sessionID = uuid.NewString()
		fmt.Printf("Switched to new session %s\n", r.sessionID)
	case "use":
		if len(args) < 2 {
			fmt.Println("Usage: session use <id>")
			return
		}
		r.sessionID = args[1]
		fmt.Printf("Switched to session %s\n", r.sessionID)
	case "delete":
		if len(args) < 2 {
			fmt.Println("Usage: session delete <id>")
			return
		}
		if err := r.store.DeleteSession(r.ctx, args[1]); err != nil {
			fmt.Printf("Failed to delete session %q: %v\n", args[1], err)
			return
		}
		fmt.Printf("Session %s deleted.\n", args[1])
	default:
		fmt.Printf("Unknown session subcommand %q\n", args[0])
	}
}

func (r *REPL) cmdSessions() {
	sessions, err := r.store.Sessions(r.ctx)
	if err != nil {
		fmt.Printf("Failed to list sessions: %v\n", err)
		return
	}
	for _, id := range sessions {
		marker := " "
		if id == r.sessionID {
			marker = "*"
		}
		stats, err := r.store.SessionStats(r.ctx, id)
		if err != nil {
			fmt.Printf("%s %s\n", marker, id)
			continue
		}
		fmt.Printf("%s %-40s %d messages, %d tool calls\n", marker, id, stats.TotalMessages, stats.ToolUsage)
	}
}

func (r *REPL) cmdHistory() {
	msgs, err := r.store.Messages(r.ctx, r.sessionID, 20)
	if err != nil {
		fmt.Printf("Failed to load history: %v\n", err)
		return
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
	}
}

func (r *REPL) cmdStats() {
	out, err := metrics.Render()
	if err != nil {
		fmt.Printf("Failed to gather metrics: %v\n", err)
		return
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "chatsec_") {
			fmt.Println(line)
		}
	}
}

func (r *REPL) completer(d prompt.Document) []prompt.Suggest {
	suggestions := []prompt.Suggest{
		{Text: "health", Description: "Check monitoring platform connectivity"},
		{Text: "agent", Description: "Manage monitored hosts (add/remove/list)"},
		{Text: "proactive", Description: "Manage scheduled jobs (add/remove/pause/resume/status/list)"},
		{Text: "session", Description: "Show or switch the chat session"},
		{Text: "sessions", Description: "List all sessions"},
		{Text: "history", Description: "Show recent messages in this session"},
		{Text: "stats", Description: "Show internal counters"},
		{Text: "help", Description: "Show available commands"},
		{Text: "exit", Description: "Exit the application"},
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (r *REPL) printHelp() {
	fmt.Println(`
Ask anything in plain text to query the security platform, e.g.
  "show me critical alerts on win-srv01"
  "how many failed logins in the last day?"

Commands:
  health                                        Check platform connectivity
  agent add <name> <ip> [groups]                Register a monitored host
  agent remove <id>                             Remove a monitored host
  agent list                                    List monitored hosts
  proactive add <name> <interval_m> <prompt>    Schedule a recurring check
  proactive remove|pause|resume|status <name>   Manage a scheduled check
  proactive list                                List scheduled checks
  proactive enable|disable                      Toggle the startup default
  session [new|use <id>|delete <id>]            Manage chat sessions
  sessions                                      List chat sessions
  history                                       Show recent messages
  stats                                         Show internal counters
  exit, quit                                    Exit`)
}

// Close releases the REPL's context.
func (r *REPL) Close() error {
	slog.Info("repl.closing", "session_id", r.sessionID)
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
