package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	codeLabel  = color.New(color.FgWhite, color.Bold)
	hintLabel  = color.New(color.FgCyan)
	causeLabel = color.New(color.FgHiBlack)
)

// DisableColors turns off colored output for the process.
func DisableColors() {
	color.NoColor = true
}

// EnableColors turns colored output back on.
func EnableColors() {
	color.NoColor = false
}

// Format renders the error for a terminal.
func (e *Error) Format() string {
	var b strings.Builder
	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(errorLabel.Sprint("ERROR "))
		b.WriteString(codeLabel.Sprint(e.Code + ": "))
	} else {
		b.WriteString(errorLabel.Sprint("ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")
	e.writeBody(&b, func(label string) string {
		if label == "Hint: " {
			return hintLabel.Sprint(label)
		}
		return causeLabel.Sprint(label)
	})
	return b.String()
}

// Plain renders the error without color, for HTTP bodies and logs.
func (e *Error) Plain() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code + ": ")
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")
	e.writeBody(&b, func(label string) string { return label })
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (e *Error) writeBody(b *strings.Builder, label func(string) string) {
	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		b.WriteString("  " + label("Cause: ") + e.Wrapped.Error() + "\n\n")
	}
	if e.Suggestion != "" {
		b.WriteString("  " + label("Hint: ") + e.Suggestion + "\n\n")
	}
}

// FormatCompact returns a single line.
func (e *Error) FormatCompact() string {
	return e.Error()
}

// FormatJSON returns the error as a JSON object.
func (e *Error) FormatJSON() string {
	v := struct {
		Code       string   `json:"code,omitempty"`
		Category   Category `json:"category"`
		Message    string   `json:"message"`
		Detail     string   `json:"detail,omitempty"`
		Suggestion string   `json:"suggestion,omitempty"`
		Cause      string   `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		v.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// PrintError writes err to stderr, formatted when it is an *Error.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}

// Fprint writes err to w, formatted when it is an *Error.
func Fprint(w io.Writer, err error) {
	if e, ok := err.(*Error); ok {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", errorLabel.Sprint("ERROR:"), err)
}
