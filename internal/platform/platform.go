// Package platform describes the host a plan is built for and maps
// non-mainstream platforms onto the package conventions they follow.
package platform

import (
	"fmt"
	"slices"
)

// Family classifies distributions that share package and service conventions.
type Family string

const (
	FamilyDebian  Family = "debian"
	FamilyRHEL    Family = "rhel"
	FamilyFedora  Family = "fedora"
	FamilyAmazon  Family = "amazon"
	FamilyMacOS   Family = "mac_os_x"
	FamilyWindows Family = "windows"
	FamilyXCP     Family = "xcp"
	FamilyUnknown Family = "unknown"
)

// Well-known platform names.
const (
	NameMacOS   = "mac_os_x"
	NameWindows = "windows"
	NameXCP     = "xcp"
	NameCentOS  = "centos"
)

// Info identifies a target platform.
type Info struct {
	Name    string `json:"name" yaml:"name"`
	Family  Family `json:"family" yaml:"family"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// String returns "name/family version".
func (i Info) String() string {
	if i.Version == "" {
		return fmt.Sprintf("%s/%s", i.Name, i.Family)
	}
	return fmt.Sprintf("%s/%s %s", i.Name, i.Family, i.Version)
}

// IsFamily reports whether the platform belongs to any of the given families.
func (i Info) IsFamily(families ...Family) bool {
	return slices.Contains(families, i.Family)
}

// Is reports whether the platform name is any of the given names.
func (i Info) Is(names ...string) bool {
	return slices.Contains(names, i.Name)
}

// SeparatesRelease reports whether packages on this platform carry the
// release as a separate component of the version (version-release).
func (i Info) SeparatesRelease() bool {
	return i.IsFamily(FamilyFedora, FamilyRHEL, FamilyAmazon) || i.Is(NameXCP)
}

// legacyCompat is the identity legacy XCP hosts are converged as.
var legacyCompat = Info{
	Name:    NameCentOS,
	Family:  FamilyRHEL,
	Version: "7.9.2009",
}

// Effective is the platform identity a plan is built against.
type Effective struct {
	Info

	// Original is the identity that was detected.
	Original Info `json:"original" yaml:"original"`

	// Legacy is set when Info was substituted by the compatibility mapping.
	Legacy bool `json:"legacy,omitempty" yaml:"legacy,omitempty"`
}

// Resolve applies the compatibility mapping once. XCP hosts are treated
// as CentOS 7 for repository and version-lock purposes; every other
// platform resolves to itself.
func Resolve(info Info) Effective {
	if info.Is(NameXCP) {
		return Effective{Info: legacyCompat, Original: info, Legacy: true}
	}
	return Effective{Info: info, Original: info}
}
