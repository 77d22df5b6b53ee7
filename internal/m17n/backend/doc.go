// Package backend selects the input-method library at build time: the
// keymap-table library by default, libm17n with the m17n build tag.
package backend
