package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/venkatbhat62/JaaduConfig/internal/dynvars"
	"github.com/venkatbhat62/JaaduConfig/internal/params"
	"github.com/venkatbhat62/JaaduConfig/internal/platform"
)

// DateTimeLayout formats JCDateTime.
const DateTimeLayout = "2006-01-02T15:04:05.000000"

// SeedInput carries the values known before the spec is read.
type SeedInput struct {
	// HostName may be fully qualified; only the part before the first dot is used.
	HostName string
	// SitePrefixLength sets how many leading characters of the host name form JCSiteName.
	// Zero leaves JCSiteName empty.
	SitePrefixLength int
	OS               platform.Info
	// Command is the command line that started the run.
	Command      string
	Now          time.Time
	TemplatePath string
	ConfigPath   string
}

// ShortHostName strips the domain from hostName.
func ShortHostName(hostName string) string {
	short, _, _ := strings.Cut(hostName, ".")
	return short
}

// Seed builds the initial parameters the resolver augments.
func Seed(in SeedInput) params.Params {
	host := ShortHostName(in.HostName)

	p := params.Params{
		"JCHostName":  params.String(host),
		"JCSiteName":  params.String(prefix(host, in.SitePrefixLength)),
		"JCCommand":   params.String(in.Command),
		"JCDateTime":  params.String(in.Now.Format(DateTimeLayout)),
		"JCOSType":    params.String(in.OS.Type),
		"JCOSName":    params.String(in.OS.Name),
		"JCOSVersion": params.String(in.OS.Version),
	}
	for n := 3; n <= 6; n++ {
		p[fmt.Sprintf("JCSiteName%dChars", n)] = params.String(prefix(host, n))
	}
	if in.TemplatePath != "" {
		p["JCTemplatePath"] = params.String(dynvars.ExpandEnv(in.TemplatePath))
	}
	if in.ConfigPath != "" {
		p["JCConfigPath"] = params.String(dynvars.ExpandEnv(in.ConfigPath))
	}
	return p
}

func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	return s[:n]
}
