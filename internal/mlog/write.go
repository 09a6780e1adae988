package mlog

import (
	"io"
	"strings"

	"github.com/dogmatiq/iago/must"
)

// String returns a log line made up of ids, icons and text.
//
// Empty elements of text are omitted. The remaining elements are separated by
// SeparatorIcon.
func String(
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) string {
	var w strings.Builder
	writeLine(&w, ids, icons, text)
	return w.String()
}

// Write writes the log line produced by String() to w.
func Write(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) (n int, err error) {
	defer must.Recover(&err)
	return writeLine(w, ids, icons, text), nil
}

func writeLine(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text []string,
) (n int) {
	for _, id := range ids {
		n += must.WriteTo(w, id)
		n += must.WriteString(w, "  ")
	}

	for _, i := range icons {
		n += must.WriteTo(w, i)
		n += must.WriteString(w, " ")
	}

	sep := " "
	for _, t := range text {
		if t == "" {
			continue
		}

		n += must.WriteString(w, sep)
		n += must.WriteString(w, t)

		sep = " " + string(SeparatorIcon) + " "
	}

	return n
}
