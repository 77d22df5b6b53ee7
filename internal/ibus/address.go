package ibus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNoAddress is returned when the IBus daemon address cannot be found.
var ErrNoAddress = errors.New("ibus: daemon address not found")

var machineIDFiles = []string{"/var/lib/dbus/machine-id", "/etc/machine-id"}

// Address returns the D-Bus address of the IBus daemon. An explicit address
// wins, then $IBUS_ADDRESS, then the address file the daemon writes under
// the user's config directory.
func Address(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if addr := os.Getenv("IBUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	path, err := AddressFile()
	if err != nil {
		return "", err
	}
	return ReadAddressFile(path)
}

// AddressFile returns the path of the daemon's address file for the current
// display, honouring $IBUS_ADDRESS_FILE.
func AddressFile() (string, error) {
	if p := os.Getenv("IBUS_ADDRESS_FILE"); p != "" {
		return p, nil
	}
	id, err := machineID()
	if err != nil {
		return "", err
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	host, display := displayName()
	return filepath.Join(dir, "ibus", "bus", fmt.Sprintf("%s-%s-%s", id, host, display)), nil
}

// ReadAddressFile parses an address file. The file is a list of KEY=value
// lines with # comments.
func ReadAddressFile(path string) (string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAddress, err)
	}
	addr := env["IBUS_ADDRESS"]
	if addr == "" {
		return "", fmt.Errorf("%w: %s has no IBUS_ADDRESS", ErrNoAddress, path)
	}
	return addr, nil
}

func machineID() (string, error) {
	for _, f := range machineIDFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no machine id", ErrNoAddress)
}

// displayName splits the display into the host and display number parts
// of the address file name. Wayland displays are used whole.
func displayName() (host, number string) {
	if d := os.Getenv("WAYLAND_DISPLAY"); d != "" {
		return "unix", d
	}
	d := os.Getenv("DISPLAY")
	if d == "" {
		d = ":0.0"
	}
	host, number, _ = strings.Cut(d, ":")
	number, _, _ = strings.Cut(number, ".")
	if host == "" {
		host = "unix"
	}
	return host, number
}
