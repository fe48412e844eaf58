package devkey

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoFingerprint is returned when no hardware identity could be read on
// the current platform.
var ErrNoFingerprint = errors.New("no device fingerprint available")

// envDeviceID overrides hardware lookup entirely. Used on headless CI
// machines and in tests.
const envDeviceID = "STRATHCONNECT_DEVICE_ID"

// Fingerprint returns a stable identifier for the current machine.
//
// Order of precedence: STRATHCONNECT_DEVICE_ID env var, then a per-OS
// hardware UUID lookup. The value is opaque; it is only ever fed into a
// KDF, never transmitted.
func Fingerprint() (string, error) {
	if v := strings.TrimSpace(os.Getenv(envDeviceID)); v != "" {
		return v, nil
	}

	switch runtime.GOOS {
	case "darwin":
		return darwinUUID()
	case "linux":
		return linuxMachineID()
	case "windows":
		return windowsUUID()
	default:
		return "", ErrNoFingerprint
	}
}

func darwinUUID() (string, error) {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 {
			return parts[3], nil
		}
	}
	return "", ErrNoFingerprint
}

func linuxMachineID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	return "", ErrNoFingerprint
}

func windowsUUID() (string, error) {
	out, err := exec.Command("wmic", "csproduct", "get", "UUID").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "UUID") {
			continue
		}
		return line, nil
	}
	return "", ErrNoFingerprint
}
