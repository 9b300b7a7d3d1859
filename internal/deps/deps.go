package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Purpose   string
	Required  bool
	Installed bool
	Path      string
	Version   string
}

// Binary describes an external program streamscribe may shell out to.
type Binary struct {
	Name        string
	VersionFlag string
	Purpose     string
	// Required binaries are needed for microphone capture
	Required bool
}

var Binaries = []Binary{
	{Name: "pw-record", VersionFlag: "--version", Purpose: "microphone capture", Required: true},
	{Name: "pw-cli", VersionFlag: "--version", Purpose: "PipeWire availability check"},
	{Name: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications"},
	{Name: "wl-copy", VersionFlag: "--version", Purpose: "transcript to clipboard"},
	{Name: "wtype", Purpose: "transcript typed into the focused window"},
}

// Check looks b up in PATH and asks it for a version string.
func Check(b Binary) Status {
	status := Status{Name: b.Name, Purpose: b.Purpose, Required: b.Required}

	path, err := exec.LookPath(b.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if b.VersionFlag == "" {
		return status
	}
	output, err := exec.Command(path, b.VersionFlag).Output()
	if err == nil {
		// first non-empty line is the version
		for _, line := range strings.Split(string(output), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				status.Version = line
				break
			}
		}
	}

	return status
}

// CheckAll checks every known binary.
func CheckAll() []Status {
	out := make([]Status, len(Binaries))
	for i, b := range Binaries {
		out[i] = Check(b)
	}
	return out
}

// MissingRequired returns the names of required binaries not found.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
