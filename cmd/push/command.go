package push

import (
	"fmt"
	"strings"

	"operator-index/pkg"
	"operator-index/pkg/index"
	"operator-index/pkg/opm"

	"github.com/spf13/cobra"
)

var flags = index.PushFlags{}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "push",
		Short:   "push the catalog index image with the appropriate tags to the registry",
		Long:    "",
		PreRunE: validation,
		RunE:    run,
	}

	cmd.Flags().StringVarP(&flags.TagExtension, "tag-extension", "t", "",
		"extend the tag of the index image with an identifier")
	cmd.Flags().StringArrayVarP(&flags.ExtraTags, "extra-tag", "e", nil,
		"also apply and push the extra tags supplied")
	cmd.Flags().BoolVar(&flags.Build, "build", true,
		"whether to build the image if it doesn't exist")
	cmd.Flags().StringVarP(&flags.SettingsFile, "settings-file", "f", pkg.DefaultSettingsFile,
		"settings file declaring the operator bundles and the catalog index")
	cmd.Flags().StringVar(&flags.ContainerEngine, "container-engine", "",
		fmt.Sprintf("specifies the container tool to use. If not set, the %s environment "+
			"variable is consulted and then the host is probed for one. [Options: %s and %s]",
			pkg.ContainerEngineEnvVar, pkg.Docker, pkg.Podman))

	return cmd
}

func validation(cmd *cobra.Command, args []string) error {
	if flags.ContainerEngine == "" {
		flags.ContainerEngine = pkg.ContainerToolFromEnv()
	}

	if flags.ContainerEngine != "" && flags.ContainerEngine != pkg.Docker && flags.ContainerEngine != pkg.Podman {
		return fmt.Errorf("invalid value for the flag --container-engine (%s)."+
			" The valid options are %s and %s", flags.ContainerEngine, pkg.Docker, pkg.Podman)
	}

	for _, tag := range flags.ExtraTags {
		if tag == "" || strings.ContainsAny(tag, ":/") {
			return fmt.Errorf("invalid value for the flag --extra-tag (%s)."+
				" Extra tags must be bare tag names; they are qualified with the catalog index image", tag)
		}
	}

	return nil
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := index.LoadSettings(flags.SettingsFile)
	if err != nil {
		return err
	}

	containerTool := flags.ContainerEngine
	if containerTool == "" {
		if containerTool, err = pkg.DetectContainerTool(); err != nil {
			return err
		}
	}

	return index.PushIndex(settings, containerTool, flags, opm.DefaultConfig())
}
