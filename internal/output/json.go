package output

import (
	"encoding/json"
	"io"
	"os"
)

// WriteJSON encodes v to w, indented when pretty is set
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// SaveJSON writes an indented JSON export of v to filepath
func SaveJSON(v any, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, v, true)
}
