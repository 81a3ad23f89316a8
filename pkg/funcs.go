package pkg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// RunCommand executes the provided command and returns its combined output.
// Suitable for short commands whose output is consumed by the caller.
func RunCommand(cmd *exec.Cmd) ([]byte, error) {
	command := strings.Join(cmd.Args, " ")
	log.Infof("running: %s", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", command, err, string(output))
	}
	if len(output) > 0 {
		log.Debugf("command output: %s", output)
	}
	return output, nil
}

// StreamCommand executes the provided command, forwarding each line of
// combined output to stdout as it is produced. Suitable for long-running
// commands (image builds, registry pushes) where the caller wants live
// feedback instead of a buffered dump at the end.
func StreamCommand(cmd *exec.Cmd) error {
	command := strings.Join(cmd.Args, " ")
	log.Infof("running: %s", command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}

	// bufio.Reader instead of a Scanner: build tools emit single lines well
	// past the Scanner token limit, and an undrained pipe blocks the child.
	reader := bufio.NewReader(stdout)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			fmt.Println(strings.TrimRight(line, "\r\n"))
		}
		if readErr != nil {
			if readErr != io.EOF {
				_, _ = io.Copy(io.Discard, stdout)
			}
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}
	return nil
}

// DetectContainerTool returns the first usable container engine, preferring
// docker over podman. A candidate only counts when its resolved path is a
// real executable rather than a symlink; shell shims and aliases resolve to
// indirection that breaks later commands assuming a direct binary path.
func DetectContainerTool() (string, error) {
	for _, tool := range []string{Docker, Podman} {
		path, err := exec.LookPath(tool)
		if err != nil {
			log.Debugf("%s not found on PATH", tool)
			continue
		}
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			log.Debugf("ignoring %s: %s is a symlink", tool, path)
			continue
		}
		log.Debugf("using container engine %s at %s", tool, path)
		return tool, nil
	}
	return "", &NoContainerToolFoundError{}
}

// ContainerToolFromEnv returns the engine named by the CONTAINER_ENGINE
// environment variable, or an empty string when it is unset.
func ContainerToolFromEnv() string {
	return os.Getenv(ContainerEngineEnvVar)
}

// ConfigureLogger sets up the process-wide logger at warn level. When the
// local syslog socket exists, entries are mirrored there as well.
func ConfigureLogger() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	if _, err := os.Stat("/dev/log"); err == nil {
		hook, err := lSyslog.NewSyslogHook("", "", syslog.LOG_INFO, "operator-index")
		if err == nil {
			log.AddHook(hook)
		}
	}
}

// RaiseVerbosity bumps the log level according to the number of -v flags.
// Repeated calls may only raise the level, never lower it.
func RaiseVerbosity(verbosity int) {
	levels := []log.Level{log.WarnLevel, log.InfoLevel, log.DebugLevel, log.TraceLevel}
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(levels) {
		verbosity = len(levels) - 1
	}
	if levels[verbosity] > log.GetLevel() {
		log.SetLevel(levels[verbosity])
	}
}

// ExitCode extracts the exit status from a failed subprocess, defaulting
// to 1 when the error did not come from a subprocess.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
