package build

import (
	"fmt"

	"operator-index/pkg"
	"operator-index/pkg/index"
	"operator-index/pkg/opm"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var flags = index.BuildFlags{}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		Short:   "build the catalog index image locally",
		Long:    "",
		PreRunE: validation,
		RunE:    run,
	}

	cmd.Flags().StringVarP(&flags.TagExtension, "tag-extension", "t", "",
		"extend the tag of the index image with an identifier")
	cmd.Flags().StringVarP(&flags.OpmVersion, "opm-version", "o", "latest",
		"the version of opm to use to build the index")
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

	log.Infof("Installing opm binary version %s", flags.OpmVersion)
	opmPath, err := opm.Install(flags.OpmVersion, opm.DefaultConfig())
	if err != nil {
		return err
	}

	return index.Build(settings, containerTool, opmPath, flags.TagExtension)
}
