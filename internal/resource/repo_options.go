package resource

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"

	fbErrors "github.com/terassyi/fbinstall/internal/errors"
)

// RepoOptions are the recognized Elastic package repository options.
type RepoOptions struct {
	// Version is the Filebeat version; the repository channel follows its major.
	Version string `json:"version"`

	// EnableOSS selects the OSS-only repository channel.
	EnableOSS bool `json:"enableOss,omitempty"`

	// Prerelease selects the prerelease channel.
	Prerelease bool `json:"prerelease,omitempty"`

	// APTURI overrides the apt repository URI.
	APTURI string `json:"aptUri,omitempty"`

	// APTDistribution overrides the apt distribution (default "stable").
	APTDistribution string `json:"aptDistribution,omitempty"`

	// APTComponents overrides the apt components (default "main").
	APTComponents []string `json:"aptComponents,omitempty"`

	// APTKey overrides the signing key URL for apt.
	APTKey string `json:"aptKey,omitempty"`

	// YumBaseURL overrides the yum baseurl.
	YumBaseURL string `json:"yumBaseUrl,omitempty"`

	// YumGPGKey overrides the signing key URL for yum.
	YumGPGKey string `json:"yumGpgKey,omitempty"`

	// YumGPGCheck toggles gpgcheck; nil keeps the default (enabled).
	YumGPGCheck *bool `json:"yumGpgCheck,omitempty"`

	// Description overrides the repository description.
	Description string `json:"description,omitempty"`
}

// repoOptionSetter applies one raw option value.
type repoOptionSetter func(o *RepoOptions, v any) error

var repoOptionSetters = map[string]repoOptionSetter{
	"enableOss":       boolOption(func(o *RepoOptions, b bool) { o.EnableOSS = b }),
	"prerelease":      boolOption(func(o *RepoOptions, b bool) { o.Prerelease = b }),
	"aptUri":          stringOption(func(o *RepoOptions, s string) { o.APTURI = s }),
	"aptDistribution": stringOption(func(o *RepoOptions, s string) { o.APTDistribution = s }),
	"aptComponents":   listOption(func(o *RepoOptions, l []string) { o.APTComponents = l }),
	"aptKey":          stringOption(func(o *RepoOptions, s string) { o.APTKey = s }),
	"yumBaseUrl":      stringOption(func(o *RepoOptions, s string) { o.YumBaseURL = s }),
	"yumGpgKey":       stringOption(func(o *RepoOptions, s string) { o.YumGPGKey = s }),
	"yumGpgCheck":     boolOption(func(o *RepoOptions, b bool) { o.YumGPGCheck = &b }),
	"description":     stringOption(func(o *RepoOptions, s string) { o.Description = s }),
}

// RepoOptionKeys returns the recognized option keys, sorted.
func RepoOptionKeys() []string {
	keys := slices.Collect(maps.Keys(repoOptionSetters))
	sort.Strings(keys)
	return keys
}

// ParseRepoOptions builds RepoOptions from raw manifest values.
// Keys with nil values are omitted. Unknown keys and mistyped values are
// rejected. A "version" key is ignored; the version always comes from the
// desired state.
func ParseRepoOptions(version string, raw map[string]any) (RepoOptions, error) {
	opts := RepoOptions{Version: version}

	keys := slices.Collect(maps.Keys(raw))
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if value == nil {
			continue
		}
		field := "elasticRepoOptions." + key
		if key == "version" {
			slog.Warn("ignoring repository option, the version comes from spec.version", "option", field, "value", value, "version", version)
			continue
		}
		set, ok := repoOptionSetters[key]
		if !ok {
			return RepoOptions{}, fbErrors.NewValidationError("filebeat", field, "one of "+strings.Join(RepoOptionKeys(), ", "), key)
		}
		if err := set(&opts, value); err != nil {
			return RepoOptions{}, fbErrors.NewValidationError("filebeat", field, err.Error(), fmt.Sprintf("%T", value))
		}
	}
	return opts, nil
}

func boolOption(apply func(*RepoOptions, bool)) repoOptionSetter {
	return func(o *RepoOptions, v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("a bool")
		}
		apply(o, b)
		return nil
	}
}

func stringOption(apply func(*RepoOptions, string)) repoOptionSetter {
	return func(o *RepoOptions, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("a string")
		}
		apply(o, s)
		return nil
	}
}

// listOption accepts a list of strings or a single space-separated string.
func listOption(apply func(*RepoOptions, []string)) repoOptionSetter {
	return func(o *RepoOptions, v any) error {
		switch l := v.(type) {
		case string:
			apply(o, strings.Fields(l))
		case []string:
			apply(o, slices.Clone(l))
		case []any:
			out := make([]string, 0, len(l))
			for _, elem := range l {
				s, ok := elem.(string)
				if !ok {
					return fmt.Errorf("a list of strings")
				}
				out = append(out, s)
			}
			apply(o, out)
		default:
			return fmt.Errorf("a list of strings")
		}
		return nil
	}
}
