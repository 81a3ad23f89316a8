package index

import (
	"fmt"
	"strings"
)

// Bundle is one operator bundle contributing an entry to the catalog index.
type Bundle struct {
	Name string `yaml:"name"`
	Img  string `yaml:"img"`
	Tag  string `yaml:"tag"`
}

// Index is the target catalog index image identity.
type Index struct {
	Img string `yaml:"img"`
	Tag string `yaml:"tag"`
}

// Settings is the declared bundle list and index identity loaded from the
// settings file. Bundle order is preserved; it becomes the order of the
// --bundles argument passed to opm.
type Settings struct {
	Bundles []Bundle `yaml:"operator_bundles"`
	Index   Index    `yaml:"catalog_index"`
}

// TagMatch reports how a requested tag resolved against the local images.
type TagMatch int

const (
	// MatchNone means neither the extended nor the base tag exists locally.
	MatchNone TagMatch = iota
	// MatchBase means only the unextended base tag exists locally.
	MatchBase
	// MatchExtended means the extension-suffixed tag exists locally.
	MatchExtended
)

// TagSet is the resolved outcome of a publish attempt: the working tag that
// was found or produced, and the fully qualified extra tags to apply and
// push ahead of it. ExtraTags never contains BuiltTag.
type TagSet struct {
	BuiltTag  string
	ExtraTags []string
}

type BuildFlags struct {
	TagExtension    string `json:"tagExtension"`
	OpmVersion      string `json:"opmVersion"`
	SettingsFile    string `json:"settingsFile"`
	ContainerEngine string `json:"containerEngine"`
}

type PushFlags struct {
	TagExtension    string   `json:"tagExtension"`
	ExtraTags       []string `json:"extraTags"`
	Build           bool     `json:"build"`
	SettingsFile    string   `json:"settingsFile"`
	ContainerEngine string   `json:"containerEngine"`
}

// SettingsInvalidError reports every problem found while loading and
// validating the settings file, so the user can fix them in one pass.
type SettingsInvalidError struct {
	File     string
	Problems []string
}

func (e *SettingsInvalidError) Error() string {
	return fmt.Sprintf("invalid settings file %s: %s", e.File, strings.Join(e.Problems, "; "))
}

// ImageNotFoundError means no local image matched the requested tag and
// building was disabled.
type ImageNotFoundError struct {
	Ref string
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("unable to find the index image %s to push; re-run with --build or build it manually", e.Ref)
}
