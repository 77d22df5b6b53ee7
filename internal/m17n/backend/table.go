//go:build !m17n

package backend

import (
	"ibus-m17n/internal/m17n"
	"ibus-m17n/internal/m17n/table"
)

// Name identifies the compiled-in library.
const Name = "table"

// Open returns the built-in keymaps plus the keymap documents in dirs.
func Open(dirs []string) (m17n.Library, error) {
	lib, err := table.New(dirs...)
	if err != nil {
		return nil, err
	}
	return lib, nil
}
