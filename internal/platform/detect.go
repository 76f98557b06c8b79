package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// DefaultOSReleasePath is where Linux distributions describe themselves.
const DefaultOSReleasePath = "/etc/os-release"

// familyByID maps os-release IDs to platform families.
var familyByID = map[string]Family{
	"debian":        FamilyDebian,
	"ubuntu":        FamilyDebian,
	"raspbian":      FamilyDebian,
	"linuxmint":     FamilyDebian,
	"rhel":          FamilyRHEL,
	"redhat":        FamilyRHEL,
	"centos":        FamilyRHEL,
	"rocky":         FamilyRHEL,
	"almalinux":     FamilyRHEL,
	"ol":            FamilyRHEL,
	"scientific":    FamilyRHEL,
	"fedora":        FamilyFedora,
	"amzn":          FamilyAmazon,
	"xcp-ng":        FamilyXCP,
	"xenenterprise": FamilyXCP,
}

// nameByID renames os-release IDs whose platform name differs.
var nameByID = map[string]string{
	"rhel":          "redhat",
	"ol":            "oracle",
	"amzn":          "amazon",
	"xcp-ng":        NameXCP,
	"xenenterprise": NameXCP,
}

// Detector detects the platform of the running host.
type Detector struct {
	goos          string
	osReleasePath string
}

// NewDetector creates a Detector for the running host.
func NewDetector() *Detector {
	return &Detector{
		goos:          runtime.GOOS,
		osReleasePath: DefaultOSReleasePath,
	}
}

// Detect returns the platform of the host.
func (d *Detector) Detect(_ context.Context) (Info, error) {
	switch d.goos {
	case "darwin":
		return Info{Name: NameMacOS, Family: FamilyMacOS}, nil
	case "windows":
		return Info{Name: NameWindows, Family: FamilyWindows}, nil
	case "linux":
		data, err := os.ReadFile(d.osReleasePath)
		if err != nil {
			return Info{}, fbErrors.NewPlatformDetectError(fmt.Errorf("failed to read %s: %w", d.osReleasePath, err))
		}
		info := ParseOSRelease(data)
		slog.Debug("detected platform", "platform", info.String())
		return info, nil
	default:
		return Info{Name: d.goos, Family: FamilyUnknown}, nil
	}
}

// ParseOSRelease builds platform info from os-release contents.
// Unknown IDs fall back to the first recognized ID_LIKE entry.
func ParseOSRelease(data []byte) Info {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}

	id := strings.ToLower(fields["ID"])
	info := Info{
		Name:    id,
		Family:  FamilyUnknown,
		Version: fields["VERSION_ID"],
	}
	if name, ok := nameByID[id]; ok {
		info.Name = name
	}

	if family, ok := familyByID[id]; ok {
		info.Family = family
		return info
	}
	for like := range strings.FieldsSeq(strings.ToLower(fields["ID_LIKE"])) {
		if family, ok := familyByID[like]; ok {
			info.Family = family
			break
		}
	}
	return info
}

// Override replaces detected fields with non-empty values.
func Override(info Info, name, family, version string) Info {
	if name != "" {
		info.Name = name
	}
	if family != "" {
		info.Family = Family(family)
	}
	if version != "" {
		info.Version = version
	}
	return info
}
