package templates

import (
	"io"

	"github.com/a-h/templ"
)

func write(w io.Writer, chunks ...string) error {
	for _, chunk := range chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

func esc(value string) string {
	return templ.EscapeString(value)
}
