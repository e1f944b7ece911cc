package repl

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ardnew/cmds/lang"
)

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // dotted function name (e.g., "path.cat")
	argIndex int    // current argument index (0-based)
	inCall   bool   // true if cursor is inside the argument list
}

// detectFunctionCall reports whether the cursor is inside the argument list
// of a call, and if so the callee name and the index of the current
// argument. Parentheses inside string literals are not distinguished.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(cursor, len(input))

	open := -1
	depth := 0

	for i := cursor - 1; i >= 0 && open < 0; i-- {
		switch input[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			} else {
				depth--
			}
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && !isIdent(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	argIndex := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// getSignature returns the signature of the function bound to name in
// root, and its parameter names. Both are empty if name is not a function.
func getSignature(root *lang.Scope, name string) (string, []string) {
	v, ok := resolve(root, name)
	if !ok {
		return "", nil
	}

	var params []string

	switch fn := v.(type) {
	case *lang.Closure:
		params = fn.Params

	case *lang.Builtin:
		params = builtinParams(fn)

	default:
		return "", nil
	}

	return name + "(" + strings.Join(params, ", ") + ")", params
}

// builtinParams names the parameters of a builtin by position. Optional
// parameters end in "?" and a variadic tail is "...rest".
func builtinParams(b *lang.Builtin) []string {
	var params []string

	for i := range b.MinArgs {
		params = append(params, "arg"+strconv.Itoa(i+1))
	}

	if b.MaxArgs < 0 {
		return append(params, "...rest")
	}

	for i := b.MinArgs; i < b.MaxArgs; i++ {
		params = append(params, "arg"+strconv.Itoa(i+1)+"?")
	}

	return params
}

// renderSignatureHint renders a signature with the current parameter
// highlighted. A variadic parameter stays highlighted for every argument
// at or beyond its position.
func renderSignatureHint(name string, params []string, current int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		variadic := strings.HasPrefix(param, "...")

		if current == i || (variadic && current > i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
