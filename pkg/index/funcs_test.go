package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"operator-index/pkg"
	"operator-index/pkg/opm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "operator-index.yml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoadSettings(t *testing.T) {
	file := writeSettings(t, `
operator_bundles:
  - name: etcd-operator
    img: quay.io/example/etcd-operator-bundle
    tag: 0.9.4
  - name: prometheus-operator
    img: quay.io/example/prometheus-operator-bundle
    tag: 0.47.0
catalog_index:
  img: quay.io/example/catalog-index
  tag: v1
`)

	settings, err := LoadSettings(file)
	require.NoError(t, err)

	require.Len(t, settings.Bundles, 2)
	assert.Equal(t, "etcd-operator", settings.Bundles[0].Name)
	assert.Equal(t, "quay.io/example/etcd-operator-bundle", settings.Bundles[0].Img)
	assert.Equal(t, "0.9.4", settings.Bundles[0].Tag)
	assert.Equal(t, "prometheus-operator", settings.Bundles[1].Name)
	assert.Equal(t, "quay.io/example/catalog-index:v1", settings.IndexTag())
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "no-such-file.yml"))
	require.Error(t, err)

	var invalid *SettingsInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestLoadSettingsMalformed(t *testing.T) {
	file := writeSettings(t, "operator_bundles: [unterminated\n")

	_, err := LoadSettings(file)
	require.Error(t, err)

	var invalid *SettingsInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestLoadSettingsReportsEveryProblem(t *testing.T) {
	file := writeSettings(t, `
operator_bundles:
  - name: etcd-operator
    img: quay.io/example/etcd-operator-bundle
catalog_index:
  img: quay.io/example/catalog-index
`)

	_, err := LoadSettings(file)
	require.Error(t, err)

	var invalid *SettingsInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Problems, "operator_bundles[0]: tag is required")
	assert.Contains(t, invalid.Problems, "catalog_index: tag is required")
}

func TestLoadSettingsEmptyBundleList(t *testing.T) {
	file := writeSettings(t, `
catalog_index:
  img: quay.io/example/catalog-index
  tag: v1
`)

	_, err := LoadSettings(file)
	require.Error(t, err)

	var invalid *SettingsInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Problems, "operator_bundles must list at least one bundle")
}

func TestGenerateBuildArguments(t *testing.T) {
	settings := &Settings{
		Bundles: []Bundle{{Name: "a-operator", Img: "a", Tag: "1"}},
		Index:   Index{Img: "idx", Tag: "v1"},
	}

	assert.Equal(t,
		" index add --build-tool docker --bundles a:1 --tag idx:v1",
		settings.GenerateBuildArguments("docker"))
}

func TestGenerateBuildArgumentsPreservesBundleOrder(t *testing.T) {
	settings := &Settings{
		Bundles: []Bundle{
			{Img: "b", Tag: "2"},
			{Img: "a", Tag: "1"},
			{Img: "c", Tag: "3"},
		},
		Index: Index{Img: "idx", Tag: "v1"},
	}

	assert.Equal(t,
		" index add --build-tool podman --bundles b:2,a:1,c:3 --tag idx:v1",
		settings.GenerateBuildArguments("podman"))
}

func TestResolveTagNoExtension(t *testing.T) {
	match, resolved := ResolveTag("idx:v1", "", []string{"other:v1", "idx:v1"})
	assert.Equal(t, MatchBase, match)
	assert.Equal(t, "idx:v1", resolved)

	match, resolved = ResolveTag("idx:v1", "", []string{"other:v1"})
	assert.Equal(t, MatchNone, match)
	assert.Equal(t, "idx:v1", resolved)
}

func TestResolveTagExtendedTakesPrecedence(t *testing.T) {
	// The extended tag wins even when the base tag is also present.
	match, resolved := ResolveTag("idx:v1", "ci", []string{"idx:v1", "idx:v1-ci"})
	assert.Equal(t, MatchExtended, match)
	assert.Equal(t, "idx:v1-ci", resolved)
}

func TestResolveTagGenericFallback(t *testing.T) {
	match, resolved := ResolveTag("idx:v1", "ci", []string{"idx:v1"})
	assert.Equal(t, MatchBase, match)
	assert.Equal(t, "idx:v1", resolved)
}

func TestResolveTagMiss(t *testing.T) {
	match, resolved := ResolveTag("idx:v1", "ci", []string{"idx:v2", "idx:v1-nightly"})
	assert.Equal(t, MatchNone, match)
	assert.Equal(t, "idx:v1", resolved)
}

func TestResolveTagExactMatchOnly(t *testing.T) {
	// Prefix or superstring entries must not count as matches.
	match, _ := ResolveTag("idx:v1", "", []string{"idx:v10", "prefix-idx:v1", "idx:v1-ci"})
	assert.Equal(t, MatchNone, match)
}

func TestNewTagSetQualifiesExtraTags(t *testing.T) {
	tagSet := NewTagSet("idx:v1-ci", "idx", []string{"latest", "stable"})
	assert.Equal(t, "idx:v1-ci", tagSet.BuiltTag)
	assert.Equal(t, []string{"idx:latest", "idx:stable"}, tagSet.ExtraTags)
}

func TestNewTagSetExcludesBuiltTag(t *testing.T) {
	tagSet := NewTagSet("idx:v1", "idx", []string{"latest", "v1", "stable"})
	assert.Equal(t, []string{"idx:latest", "idx:stable"}, tagSet.ExtraTags)
}

func TestNewTagSetPreservesDuplicates(t *testing.T) {
	// Duplicate extras are issued independently; retagging is a no-op when
	// already applied.
	tagSet := NewTagSet("idx:v1", "idx", []string{"latest", "latest"})
	assert.Equal(t, []string{"idx:latest", "idx:latest"}, tagSet.ExtraTags)
}

func TestPushOrderWorkingTagLast(t *testing.T) {
	tagSet := NewTagSet("idx:v1-ci", "idx", []string{"t1", "t2"})
	assert.Equal(t, []string{"idx:t1", "idx:t2", "idx:v1-ci"}, tagSet.PushOrder())
}

func TestPushOrderNoExtras(t *testing.T) {
	tagSet := NewTagSet("idx:v1", "idx", nil)
	assert.Equal(t, []string{"idx:v1"}, tagSet.PushOrder())
}

func testSettings() *Settings {
	return &Settings{
		Bundles: []Bundle{{Name: "a-operator", Img: "a", Tag: "1"}},
		Index:   Index{Img: "idx", Tag: "v1"},
	}
}

// fakeEngine installs a docker stand-in on PATH that records every
// invocation, answers the images listing with the given refs, and exits
// pushExit on push.
func fakeEngine(t *testing.T, images []string, pushExit int) string {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "calls.log")

	var listing strings.Builder
	listing.WriteString("\t:\n")
	for _, image := range images {
		fmt.Fprintf(&listing, "\tprintf '%%s\\n' %s\n", image)
	}

	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
if [ "$1" = "images" ]; then
%s
fi
if [ "$1" = "push" ]; then
	exit %d
fi
exit 0
`, logFile, listing.String(), pushExit)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker"), []byte(script), 0o755))
	t.Setenv("PATH", dir)
	return logFile
}

func engineCalls(t *testing.T, logFile string) []string {
	t.Helper()
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestPushIndexImageNotFoundWhenBuildDisabled(t *testing.T) {
	logFile := fakeEngine(t, nil, 0)

	flags := PushFlags{TagExtension: "ci", Build: false}
	err := PushIndex(testSettings(), "docker", flags, opm.Config{})
	require.Error(t, err)

	var notFound *ImageNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "idx:v1", notFound.Ref)

	// A missing image with building disabled is a hard stop; nothing may be
	// tagged or pushed afterwards.
	assert.Equal(t, []string{
		"images --format {{.Repository}}:{{.Tag}}",
	}, engineCalls(t, logFile))
}

func TestPushIndexRetagsBaseForExtendedRequest(t *testing.T) {
	logFile := fakeEngine(t, []string{"idx:v1"}, 0)

	flags := PushFlags{TagExtension: "ci", ExtraTags: []string{"t1", "t2"}, Build: true}
	require.NoError(t, PushIndex(testSettings(), "docker", flags, opm.Config{}))

	// The present base tag is a retag source, not a rebuild trigger; extras
	// are applied in caller order and pushed before the working tag.
	assert.Equal(t, []string{
		"images --format {{.Repository}}:{{.Tag}}",
		"tag idx:v1 idx:v1-ci",
		"tag idx:v1-ci idx:t1",
		"tag idx:v1-ci idx:t2",
		"push idx:t1",
		"push idx:t2",
		"push idx:v1-ci",
	}, engineCalls(t, logFile))
}

func TestPushIndexExtendedTagAlreadyPresent(t *testing.T) {
	logFile := fakeEngine(t, []string{"idx:v1", "idx:v1-ci"}, 0)

	flags := PushFlags{TagExtension: "ci", Build: true}
	require.NoError(t, PushIndex(testSettings(), "docker", flags, opm.Config{}))

	assert.Equal(t, []string{
		"images --format {{.Repository}}:{{.Tag}}",
		"push idx:v1-ci",
	}, engineCalls(t, logFile))
}

func TestPushIndexPushFailureAborts(t *testing.T) {
	logFile := fakeEngine(t, []string{"idx:v1"}, 2)

	flags := PushFlags{ExtraTags: []string{"t1", "t2"}}
	err := PushIndex(testSettings(), "docker", flags, opm.Config{})
	require.Error(t, err)
	assert.Equal(t, 2, pkg.ExitCode(err))

	// The first failed push ends the sequence; no partial retry.
	assert.Equal(t, []string{
		"images --format {{.Repository}}:{{.Tag}}",
		"tag idx:v1 idx:t1",
		"tag idx:v1 idx:t2",
		"push idx:t1",
	}, engineCalls(t, logFile))
}

func TestBuildKeepsOpmPathIntact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "install dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	logFile := filepath.Join(dir, "calls.log")
	opmPath := filepath.Join(dir, "opm")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > %q\n", logFile)
	require.NoError(t, os.WriteFile(opmPath, []byte(script), 0o755))

	require.NoError(t, Build(testSettings(), "docker", opmPath, "ci"))

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t,
		"index add --build-tool docker --bundles a:1 --tag idx:v1-ci",
		strings.TrimSpace(string(data)))
}
