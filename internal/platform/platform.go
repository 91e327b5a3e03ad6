package platform

import (
	"bufio"
	"regexp"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

// Info describes the host operating system.
type Info struct {
	// Type is Linux, Windows or Darwin.
	Type string
	// Name is the distribution id, e.g. "rhel" or "ubuntu".
	Name string
	// Version is the major version number.
	Version string
}

var (
	redHatPattern = regexp.MustCompile(`Red Hat (.*) (\d+\.\d+)`)
	majorPattern  = regexp.MustCompile(`\d+`)
)

// Detect inspects the running host.
func Detect(fs afero.Fs) Info {
	return DetectFor(fs, runtime.GOOS)
}

// DetectFor builds Info for the given GOOS, reading release files from fs.
func DetectFor(fs afero.Fs, goos string) Info {
	logger := logging.GetLogger("platform")

	var info Info
	switch goos {
	case "linux":
		info.Type = "Linux"
		info.Name, info.Version = linuxRelease(fs)
	case "windows":
		info.Type = "Windows"
		info.Name = "Windows"
	case "darwin":
		info.Type = "Darwin"
		info.Name = "macos"
	default:
		info.Type = cases.Title(language.Und).String(goos)
		info.Name = goos
	}

	info.Version = majorPattern.FindString(info.Version)

	logger.Debug().
		Str("type", info.Type).
		Str("name", info.Name).
		Str("version", info.Version).
		Msg("Detected platform")

	return info
}

// linuxRelease returns the distribution id and version string.
func linuxRelease(fs afero.Fs) (name, version string) {
	if lines, err := readLines(fs, "/etc/os-release"); err == nil {
		for _, line := range lines {
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			value = strings.Trim(value, `"'`)
			switch key {
			case "ID":
				name = value
			case "VERSION_ID":
				version = value
			}
		}
		return name, version
	}

	for _, path := range []string{"/etc/system-release", "/etc/redhat-release"} {
		lines, err := readLines(fs, path)
		if err != nil {
			continue
		}
		for _, line := range lines {
			if m := redHatPattern.FindStringSubmatch(line); m != nil {
				return "rhel", m[2]
			}
		}
		return name, version
	}

	logger := logging.GetLogger("platform")
	logger.Warn().Msg("Cannot read /etc/os-release or /etc/system-release")
	return "", ""
}

func readLines(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
