package config

import (
	"fmt"
	"runtime"
)

// OS represents the operating system.
type OS string

const (
	OSLinux   OS = "linux"
	OSDarwin  OS = "darwin"
	OSWindows OS = "windows"
)

// Arch represents the CPU architecture.
type Arch string

const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

// Env is injected into CUE manifests as the hidden _env field, e.g.
//
//	spec: windowsBaseDir: [if _env.os == "windows" {"D:/filebeat"}, "C:/opt/filebeat"][0]
type Env struct {
	OS   OS   `json:"os"`
	Arch Arch `json:"arch"`
}

// DetectEnv detects the current environment.
func DetectEnv() *Env {
	env := &Env{OS: OSLinux, Arch: ArchAMD64}
	switch runtime.GOOS {
	case "darwin":
		env.OS = OSDarwin
	case "windows":
		env.OS = OSWindows
	}
	if runtime.GOARCH == "arm64" {
		env.Arch = ArchARM64
	}
	return env
}

func (e *Env) cue() string {
	return fmt.Sprintf("_env: {\n\tos: %q\n\tarch: %q\n}\n", e.OS, e.Arch)
}
