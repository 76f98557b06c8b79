// Package resource defines the FilebeatInstall resource: a named desired
// state for one Filebeat installation, in the apiVersion/kind/metadata/spec
// shape manifests are written in.
package resource

import "fmt"

// Kind identifies a resource type in manifests.
type Kind string

const (
	KindFilebeatInstall Kind = "FilebeatInstall"
)

const (
	APIGroup     = "fbinstall.terassyi.net"
	APIVersion   = "v1beta1"
	GroupVersion = APIGroup + "/" + APIVersion
)

// Metadata names a resource. Labels are carried through but not interpreted.
type Metadata struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// BaseResource is the header every manifest document carries.
type BaseResource struct {
	APIVersion   string   `json:"apiVersion" yaml:"apiVersion"`
	ResourceKind Kind     `json:"kind" yaml:"kind"`
	Metadata     Metadata `json:"metadata" yaml:"metadata"`
}

func (r *BaseResource) Name() string { return r.Metadata.Name }

// Ref returns "Kind/name", the form used in logs and error messages.
func (r *BaseResource) Ref() string {
	return fmt.Sprintf("%s/%s", r.ResourceKind, r.Metadata.Name)
}
