package pkg

import "fmt"

type NoContainerToolFoundError struct{}

func (e *NoContainerToolFoundError) Error() string {
	return fmt.Sprintf("unable to identify a container runtime: neither %s nor %s resolved to a real executable on PATH", Docker, Podman)
}
