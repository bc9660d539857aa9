package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

const ansiReset = "\033[0m"

// style is an ANSI SGR sequence.
type style string

const (
	styleError style = "\033[1;31m"
	styleTitle style = "\033[1;37m"
	styleLoc   style = "\033[36m"
	styleFaint style = "\033[90m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() { colorEnabled = false }

// EnableColors enables ANSI color output.
func EnableColors() { colorEnabled = true }

func (s style) paint(text string) string {
	if !colorEnabled || text == "" {
		return text
	}
	return string(s) + text + ansiReset
}

// Format returns a multi-line rendering for terminals: header, source
// snippet with a caret under the column, detail, cause and hint.
func (e *Error) Format() string {
	var b strings.Builder

	title := e.Message
	if e.Subject != "" {
		title += " (" + e.Subject + ")"
	}
	label := "ERROR: "
	if e.Code != "" {
		label = "ERROR " + e.Code + ": "
	}
	fmt.Fprintf(&b, "\n%s%s\n\n", styleError.paint(label), styleTitle.paint(title))

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", styleLoc.paint(e.Location.String()))
		if len(e.Context) > 0 {
			e.writeSnippet(&b)
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", styleFaint.paint("Cause: "), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n", styleLoc.paint("Hint: "), e.Suggestion)
	}
	return b.String()
}

func (e *Error) writeSnippet(b *strings.Builder) {
	first := e.ContextStart
	bar := styleFaint.paint(" │ ")

	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, bar, text)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", styleError.paint("→ "), n, bar, text)
		if e.Location.Column > 0 {
			pad := strings.Repeat(" ", e.Location.Column-1)
			fmt.Fprintf(b, "       %s%s%s\n", styleFaint.paint("│ "), pad, styleError.paint("^"))
		}
	}
}

// FormatCompact returns the error on one line, prefixed by its location.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// jsonError is the wire shape of FormatJSON.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Subject    string    `json:"subject,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	Cause      string    `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Subject:    e.Subject,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// Render formats err for a terminal: coded errors anywhere in the chain
// get the full Format treatment, anything else prints as-is.
func Render(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Format()
	}
	return styleError.paint("Error: ") + err.Error() + "\n"
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
