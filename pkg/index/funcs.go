package index

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"operator-index/pkg"
	"operator-index/pkg/opm"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadSettings reads and validates the settings file. Any problem with the
// document fails loading with a SettingsInvalidError naming every missing or
// invalid field.
func LoadSettings(file string) (*Settings, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &SettingsInvalidError{File: file, Problems: []string{err.Error()}}
	}

	settings := &Settings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, &SettingsInvalidError{File: file, Problems: []string{err.Error()}}
	}

	if problems := settings.validate(); len(problems) > 0 {
		return nil, &SettingsInvalidError{File: file, Problems: problems}
	}

	log.Debugf("Loaded settings: %+v", settings)
	return settings, nil
}

func (s *Settings) validate() []string {
	var problems []string
	if len(s.Bundles) == 0 {
		problems = append(problems, "operator_bundles must list at least one bundle")
	}
	for i, b := range s.Bundles {
		if b.Img == "" {
			problems = append(problems, fmt.Sprintf("operator_bundles[%d]: img is required", i))
		}
		if b.Tag == "" {
			problems = append(problems, fmt.Sprintf("operator_bundles[%d]: tag is required", i))
		}
	}
	if s.Index.Img == "" {
		problems = append(problems, "catalog_index: img is required")
	}
	if s.Index.Tag == "" {
		problems = append(problems, "catalog_index: tag is required")
	}
	return problems
}

// IndexTag returns the fully qualified base tag of the catalog index.
func (s *Settings) IndexTag() string {
	return s.Index.Img + ":" + s.Index.Tag
}

// GenerateBuildArguments renders the opm argument string for these settings.
// The result is appended verbatim to the opm binary path, so it carries a
// leading space.
func (s *Settings) GenerateBuildArguments(containerTool string) string {
	refs := make([]string, 0, len(s.Bundles))
	for _, b := range s.Bundles {
		refs = append(refs, b.Img+":"+b.Tag)
	}
	bundles := strings.Join(refs, ",")
	index := s.IndexTag()
	log.Debugf("Generated bundles %s and index %s", bundles, index)

	return fmt.Sprintf(" index add --build-tool %s --bundles %s --tag %s", containerTool, bundles, index)
}

// Build runs opm to build the index image locally, streaming its output.
// When tagExtension is set the built image is tagged {index}:{tag}-{ext}.
func Build(settings *Settings, containerTool, opmPath, tagExtension string) error {
	arguments := settings.GenerateBuildArguments(containerTool)
	if tagExtension != "" {
		arguments += "-" + tagExtension
	}

	// The binary path stays a single argv element; only the generated
	// arguments are split, so an install path containing spaces survives.
	return pkg.StreamCommand(exec.Command(opmPath, strings.Fields(arguments)...))
}

// ListImages returns the local images known to the container engine as
// image:tag strings.
func ListImages(containerTool string) ([]string, error) {
	cmd := exec.Command(containerTool, "images", "--format", "{{.Repository}}:{{.Tag}}")
	output, err := pkg.RunCommand(cmd)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			images = append(images, line)
		}
	}
	return images, nil
}

// ResolveTag reports whether the requested index image already exists in the
// local image list, and under which exact tag. A requested extension takes
// precedence: {base}-{ext} is searched first, then the plain base tag.
// Matching is exact string equality; no prefix or fuzzy matching.
func ResolveTag(baseTag, extension string, images []string) (TagMatch, string) {
	if extension != "" {
		extended := baseTag + "-" + extension
		for _, image := range images {
			if image == extended {
				log.Debugf("Found tag extension: -%s", extension)
				return MatchExtended, extended
			}
		}
	}
	for _, image := range images {
		if image == baseTag {
			log.Debug("Found unextended tag")
			return MatchBase, baseTag
		}
	}
	return MatchNone, baseTag
}

// NewTagSet qualifies the caller-supplied bare tags against the index image
// name. Order and duplicates among the extras are preserved; an extra that
// qualifies to the working tag itself is skipped.
func NewTagSet(builtTag, indexImage string, extraTags []string) TagSet {
	tagSet := TagSet{BuiltTag: builtTag}
	for _, tag := range extraTags {
		ref := indexImage + ":" + tag
		if ref == builtTag {
			continue
		}
		tagSet.ExtraTags = append(tagSet.ExtraTags, ref)
	}
	return tagSet
}

// PushOrder returns every tag to push, extras first and the working tag
// last. If a push run is interrupted, a missing working tag signals the
// incomplete publish more reliably than a missing auxiliary alias would.
func (t TagSet) PushOrder() []string {
	return append(append([]string{}, t.ExtraTags...), t.BuiltTag)
}

// PushIndex publishes the catalog index: it resolves which local tag to
// push, builds the image when allowed and none exists, retags a plain base
// image when an extension was requested, applies the extra tags, and pushes
// everything to the registry.
//
// A present base tag satisfies an extended request through a local retag,
// never by triggering a rebuild; a build happens only when neither the
// extended nor the base tag exists locally.
func PushIndex(settings *Settings, containerTool string, flags PushFlags, opmCfg opm.Config) error {
	builtTag := settings.IndexTag()
	log.Infof("Configured tag: %s", builtTag)

	images, err := ListImages(containerTool)
	if err != nil {
		return err
	}

	match, workingTag := ResolveTag(builtTag, flags.TagExtension, images)
	switch {
	case match == MatchNone:
		log.Infof("Unable to find an existing image for %s", workingTag)
		if !flags.Build {
			return &ImageNotFoundError{Ref: workingTag}
		}
		opmPath, err := opm.Install("latest", opmCfg)
		if err != nil {
			return err
		}
		if err := Build(settings, containerTool, opmPath, flags.TagExtension); err != nil {
			return err
		}
		if flags.TagExtension != "" {
			workingTag = builtTag + "-" + flags.TagExtension
		}
	case match == MatchBase && flags.TagExtension != "":
		extended := workingTag + "-" + flags.TagExtension
		log.Infof("Retagging %s as %s", workingTag, extended)
		cmd := exec.Command(containerTool, "tag", workingTag, extended)
		if _, err := pkg.RunCommand(cmd); err != nil {
			return err
		}
		workingTag = extended
	}

	tagSet := NewTagSet(workingTag, settings.Index.Img, flags.ExtraTags)
	if len(tagSet.ExtraTags) > 0 {
		log.Infof("Also tagging: %s", strings.Join(tagSet.ExtraTags, ", "))
	}
	for _, ref := range tagSet.ExtraTags {
		cmd := exec.Command(containerTool, "tag", tagSet.BuiltTag, ref)
		if _, err := pkg.RunCommand(cmd); err != nil {
			return err
		}
	}

	for _, ref := range tagSet.PushOrder() {
		cmd := exec.Command(containerTool, "push", ref)
		if err := pkg.StreamCommand(cmd); err != nil {
			return err
		}
	}

	return nil
}
