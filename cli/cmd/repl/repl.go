package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/cmds/lang"
	"github.com/ardnew/cmds/log"
)

// evalResultMsg carries the outcome of one evaluation.
type evalResultMsg struct {
	input  string
	output string
	value  lang.Value
	err    error
}

// editSourceMsg is sent when the editor produced a program that parses.
type editSourceMsg struct{ source string }

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a syntax
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails for another reason.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help     Print this help
  list     List variables bound in the session
  edit     Write a program in $EDITOR and run it
  clear    Clear screen
  quit     Exit REPL

Usage:
  Type a statement to run it; variables persist between inputs
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to navigate command history
  Press Ctrl+C to interrupt a running input
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
//
//nolint:gochecknoglobals
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)

	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// formatCommand formats the echo line of an evaluated input.
func formatCommand(input string) string {
	return promptStyle.Render(evalPrompt) + inputStyle.Render(input)
}

// formatCtrlCommand formats the echo line of a control command.
func formatCtrlCommand(input string) string {
	return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
}

// Config describes a REPL session.
type Config struct {
	// Interpreter evaluates each input in Root. It must write print output
	// to Output.
	Interpreter *lang.Interpreter
	Root        *lang.Scope
	Output      *bytes.Buffer
	History     *History
	Logger      log.Logger
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc          func() context.Context
	input            textinput.Model
	interp           *lang.Interpreter
	root             *lang.Scope
	out              *bytes.Buffer
	logger           log.Logger
	history          *History
	historyIdx       int
	matches          fuzzy.Matches // current fuzzy match results
	candidates       []string      // backing candidate list
	wordStart        int           // byte offset of current word start
	wordEnd          int           // byte offset of current word end
	suggIdx          int           // selected candidate index
	tabActive        bool          // whether user is tab-cycling
	preTabText       string        // input text before tab-cycling began
	preTabCursor     int           // cursor position before tab-cycling began
	altNavActive     bool          // whether user is in Alt+Up/Down navigation
	altNavOrigMode   inputMode     // original mode before Alt navigation
	altNavOrigText   string        // original text before Alt navigation
	altNavOrigCursor int           // original cursor position before Alt navigation
	width            int           // terminal width for ellipsization
	quitting         bool
	mode             inputMode
	evalText         string
	evalCursor       int
	ctrlText         string
	ctrlCursor       int
	busy             bool               // an evaluation is running
	cancel           context.CancelFunc // interrupts the running evaluation
	draft            string             // last evaluated input, offered by edit
	exit             *lang.ExitError    // set when the program called exit
}

// Run starts the REPL. It returns an [*lang.ExitError] when an input
// called exit.
func Run(ctx context.Context, cfg Config) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if cfg.History == nil {
		cfg.History = NewHistory(DefaultHistoryLimit)
	}

	if cfg.Output == nil {
		cfg.Output = new(bytes.Buffer)
	}

	cfg.Logger.TraceContext(ctx, "repl start",
		slog.Int("history_count", cfg.History.Len()),
		slog.Int("binding_count", cfg.Root.Len()),
	)

	p := tea.NewProgram(newModel(ctx, cfg), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(model); ok && m.exit != nil {
		return m.exit
	}

	return nil
}

const defaultWidth = 80

func newModel(ctx context.Context, cfg Config) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		interp:     cfg.Interpreter,
		root:       cfg.Root,
		out:        cfg.Output,
		logger:     cfg.Logger,
		history:    cfg.History,
		historyIdx: cfg.History.Len(),
		width:      defaultWidth,
		mode:       modeEval,
		suggIdx:    -1,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - utf8.RuneCountInString(evalPrompt) - 2

		return m, nil

	case evalResultMsg:
		return m.handleResult(msg)

	case editSourceMsg:
		m.draft = msg.source

		return m.startEval(msg.source, tea.Println(hintStyle.Render("✔: running edited program")))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit cancelled."))

	case editDeclinedMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit discarded."))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	funcCall := detectFunctionCall(input, m.input.Position())

	switch {
	case m.busy:
		b.WriteString(hintStyle.Render("running… (Ctrl+C to interrupt)"))

	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		hint := "Type a statement or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case funcCall.inCall && m.mode == modeEval && !m.tabActive:
		if sig, params := getSignature(m.root, funcCall.name); sig != "" {
			b.WriteString(renderSignatureHint(funcCall.name, params, funcCall.argIndex))
		} else {
			b.WriteString(m.renderCandidateBar())
		}

	default:
		b.WriteString(m.renderCandidateBar())
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Bool("busy", m.busy),
	)

	if m.busy {
		// the interpreter owns the scope until its result arrives
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			m.cancel()
		}

		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			m.altNavActive = false

			return m.executeInput()
		}

		// lock in the current candidate without executing
		m.tabActive = false
		m.altNavActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		return m.toggleMode(), nil

	case tea.KeyRunes, tea.KeySpace:
		if m.tabActive && msg.Type == tea.KeySpace {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// any other key (backspace, delete, arrows, etc.) edits without
	// auto-confirming a completion
	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the completion selection by dir, completing immediately when
// there is a single candidate.
func (m model) cycle(dir int) model {
	if len(m.matches) == 0 {
		return m
	}

	if len(m.matches) == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + dir + len(m.matches)) % len(m.matches)
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if dir < 0 {
			m.suggIdx = len(m.matches) - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word in the input and moves the
// cursor after it.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	newCursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(newCursor)

	m.wordEnd = newCursor
}

// refreshMatches recomputes fuzzy matches for the current input. With
// autoConfirm, a sole candidate equal to the typed word is accepted.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if candidate := m.matches[0].Str; m.input.Value()[m.wordStart:m.wordEnd] == candidate {
		replaceCurrentWord(m, candidate)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.evalText = ""
	m.evalCursor = 0
	m.ctrlText = ""
	m.ctrlCursor = 0
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Write(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		return m.executeCommand(input)
	}

	m.draft = input

	return m.startEval(input, tea.Println(formatCommand(input)))
}

// startEval marks the model busy and evaluates src in the background.
// Output from the program is printed after echo.
func (m model) startEval(src string, echo tea.Cmd) (model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctxFunc())

	m.busy = true
	m.cancel = cancel

	m.logger.TraceContext(ctx, "repl eval", slog.Int("source_bytes", len(src)))

	return m, tea.Sequence(echo, m.evalCmd(ctx, cancel, src))
}

// evalCmd runs src in the session's root scope.
func (m model) evalCmd(ctx context.Context, cancel context.CancelFunc, src string) tea.Cmd {
	interp, root, out := m.interp, m.root, m.out

	return func() tea.Msg {
		defer cancel()

		out.Reset()

		v, err := interp.Run(ctx, src, root)

		return evalResultMsg{input: src, output: out.String(), value: v, err: err}
	}
}

func (m model) handleResult(msg evalResultMsg) (model, tea.Cmd) {
	m.busy = false
	m.cancel = nil

	var lines []string

	if out := strings.TrimRight(msg.output, "\n"); out != "" {
		lines = append(lines, out)
	}

	var exit *lang.ExitError

	switch {
	case errors.As(msg.err, &exit):
		m.exit = exit
		m.quitting = true

		return m, tea.Sequence(printLines(lines), tea.Quit)

	case errors.Is(msg.err, context.Canceled):
		lines = append(lines, errorStyle.Render("interrupted"))

	case msg.err != nil:
		lines = append(lines, errorStyle.Render(
			strings.TrimRight(lang.FormatError(msg.err, msg.input), "\n")))

	default:
		if s := formatResult(msg.value); s != "" {
			lines = append(lines, s)
		}
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval result",
		slog.Bool("error", msg.err != nil),
		slog.Int("output_bytes", len(msg.output)),
	)

	refreshMatches(&m, false)

	return m, printLines(lines)
}

func printLines(lines []string) tea.Cmd {
	if len(lines) == 0 {
		return nil
	}

	return tea.Println(strings.Join(lines, "\n"))
}

// formatResult renders the value of an input. None prints nothing, and a
// command result prints what the command wrote.
func formatResult(v lang.Value) string {
	switch v := v.(type) {
	case nil:
		return ""

	case lang.Option:
		if !v.Some {
			return ""
		}

	case *lang.CommandResult:
		out := strings.TrimRight(v.Stdout, "\n")
		if e := strings.TrimRight(v.Stderr, "\n"); e != "" {
			out = strings.TrimLeft(out+"\n"+errorStyle.Render(e), "\n")
		}

		if v.Code != 0 {
			out = strings.TrimLeft(out+"\n"+hintStyle.Render("exit status "+strconv.Itoa(v.Code)), "\n")
		}

		return out
	}

	return resultStyle.Render(lang.Repr(v))
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echoCmd := tea.Println(formatCtrlCommand(input))

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", parts[0]),
		slog.Any("args", parts[1:]),
	)

	switch parts[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echoCmd, tea.Println(m.listBindings()))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echoCmd, m.editCmd())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + parts[0] + " (try 'help')"),
		)
	}
}

func (m model) editCmd() tea.Cmd {
	cmd := &editCommand{
		draft:   m.draft,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.source == "":
			return editCancelledMsg{}
		default:
			return editSourceMsg{source: cmd.source}
		}
	})
}

// listBindings renders each variable of the session with a short preview.
func (m model) listBindings() string {
	const maxPreview = 40

	var b strings.Builder

	for name, v := range m.root.All() {
		preview := lang.Repr(v)
		if utf8.RuneCountInString(preview) > maxPreview {
			preview = string([]rune(preview)[:maxPreview-3]) + "..."
		}

		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(preview))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (no variables)")
	}

	return strings.TrimRight(b.String(), "\n")
}

// historyStep moves through history by dir. With sameMode only entries of
// the current mode are visited; otherwise the mode follows the entry.
func (m model) historyStep(dir int, sameMode bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		entry, err := m.history.GetEntry(i)
		if err != nil || (sameMode && entry.Mode != m.mode) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		refreshMatches(&m, false)

		return m
	}

	// stepping past the newest entry returns to an empty line
	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		refreshMatches(&m, false)
	}

	return m
}

// historyCtrl walks control-mode history, restoring the original mode and
// input once either end is passed.
func (m model) historyCtrl(dir int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		if entry, err := m.history.GetEntry(i); err == nil && entry.Mode == modeCtrl {
			m.historyIdx = i
			m.input.SetValue(entry.Line)
			m.input.SetCursor(len(entry.Line))
			refreshMatches(&m, false)

			return m
		}
	}

	m.altNavActive = false
	if m.altNavOrigMode != m.mode {
		m = m.switchToMode(m.altNavOrigMode)
	}

	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

// toggleMode switches between eval and control modes.
func (m model) toggleMode() model {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode switches to mode, saving and restoring each mode's input.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText = m.input.Value()
		m.evalCursor = m.input.Position()
	} else {
		m.ctrlText = m.input.Value()
		m.ctrlCursor = m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
