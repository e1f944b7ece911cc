package repl

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/cmds/lang"
	"github.com/ardnew/cmds/lang/token"
)

// ctrlCommands are the available control-mode commands.
//
//nolint:gochecknoglobals
var ctrlCommands = []string{"help", "list", "edit", "clear", "quit"}

// isIdent reports whether r may appear in an identifier.
func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordBounds returns the identifier at the cursor position and its byte
// boundaries within input. The word is empty when the cursor sits between
// two non-identifier characters.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if !isIdent(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if !isIdent(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain leading up to the word that
// starts at wordStart. For "x + server.http.ho" with the word "ho", it is
// "server.http". Top-level words have an empty parent.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimSuffix(prefix, ".")
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && !isIdent(r) {
			break
		}

		pos -= size
	}

	return strings.Trim(prefix[pos:], ".")
}

// resolve looks up a dotted path starting in sc. Each segment after the
// first must name an own field of an object.
func resolve(sc *lang.Scope, path string) (lang.Value, bool) {
	segments := strings.Split(path, ".")

	v, ok := sc.Lookup(segments[0])

	for _, seg := range segments[1:] {
		if !ok {
			break
		}

		obj, isObj := v.(*lang.Scope)
		if !isObj {
			return nil, false
		}

		v, ok = obj.Get(seg)
	}

	return v, ok
}

// visibleNames returns every name bound in sc or its ancestors, nearest
// first and without duplicates.
func visibleNames(sc *lang.Scope) []string {
	var names []string

	for ; sc != nil; sc = sc.Parent() {
		for _, name := range sc.Names() {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}

	return names
}

// childCandidates returns the completions for a word whose member-access
// parent is parent. Top-level words complete to visible names and keywords.
func childCandidates(root *lang.Scope, parent string) []string {
	if parent == "" {
		return append(visibleNames(root), token.Keywords()...)
	}

	v, ok := resolve(root, parent)
	if !ok {
		return nil
	}

	if obj, isObj := v.(*lang.Scope); isObj {
		return obj.Names()
	}

	switch v.Kind() {
	case lang.KindCommandResult:
		return []string{"stdout", "stderr", "code", "ok"}
	case lang.KindAsyncHandle:
		return []string{"done", "command"}
	case lang.KindResult, lang.KindOption:
		return []string{"value"}
	default:
		return nil
	}
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor. After a dot every member is offered; an empty top-level word
// offers nothing so the hint line stays visible.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	if m.mode == modeCtrl {
		if word == "" {
			return nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands
	} else {
		parent := parentPath(input, wordStart)
		candidates = childCandidates(m.root, parent)

		if word == "" {
			if parent == "" || len(candidates) == 0 {
				return nil, nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, candidates, wordStart, wordEnd
		}
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit within width. The selected candidate (when tabbing) is highlighted.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)
	parent := parentPath(m.input.Value(), m.wordStart)

	var b strings.Builder

	used := 0

	for i, match := range m.matches {
		selected := m.tabActive && i == m.suggIdx
		rendered := renderCandidate(match, selected, m.isFunction(parent, match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > m.width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Functions get a "()" suffix that is not inserted on
// completion.
func renderCandidate(match fuzzy.Match, selected, function bool) string {
	baseStyle := suggestionStyle
	highlightStyle := matchStyle

	if selected {
		baseStyle = selectedStyle
		highlightStyle = selectedMatchStyle
	}

	var b strings.Builder

	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if function {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

// isFunction reports whether name, a member of parent (or top-level when
// parent is empty), is bound to a function.
func (m model) isFunction(parent, name string) bool {
	if parent != "" {
		name = parent + "." + name
	}

	v, ok := resolve(m.root, name)

	return ok && v.Kind() == lang.KindFunction
}
