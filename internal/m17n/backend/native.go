//go:build m17n

package backend

import (
	"ibus-m17n/internal/m17n"
	"ibus-m17n/internal/m17n/native"
)

// Name identifies the compiled-in library.
const Name = "m17n"

// Open initialises libm17n. dirs is ignored: libm17n reads its own
// database.
func Open(_ []string) (m17n.Library, error) {
	lib, err := native.Open()
	if err != nil {
		return nil, err
	}
	return lib, nil
}
