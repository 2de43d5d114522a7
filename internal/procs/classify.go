package procs

import "strings"

// systemPathPrefixes mark executables that belong to the operating system
// itself. Apps under these paths are never eligible for termination.
var systemPathPrefixes = []string{
	"/System/",
	"/usr/libexec/",
	"/usr/sbin/",
	"/sbin/",
	"/usr/lib/systemd/",
	"/lib/systemd/",
}

// systemNames are well-known OS components matched by bare process name when
// no executable path is available.
var systemNames = map[string]bool{
	"kernel_task":        true,
	"launchd":            true,
	"WindowServer":       true,
	"loginwindow":        true,
	"Finder":             true,
	"SystemUIServer":     true,
	"Dock":               true,
	"ControlCenter":      true,
	"NotificationCenter": true,
	"systemd":            true,
	"init":               true,
}

// IsSystemApp reports whether an app is an operating-system component that
// must never be terminated, even when it scores as stale.
func IsSystemApp(name, exe string) bool {
	if systemNames[name] {
		return true
	}
	for _, prefix := range systemPathPrefixes {
		if strings.HasPrefix(exe, prefix) {
			return true
		}
	}
	return false
}
