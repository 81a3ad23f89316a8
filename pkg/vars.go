package pkg

const Docker = "docker"
const Podman = "podman"
const DefaultSettingsFile = "operator-index.yml"
const ContainerEngineEnvVar = "CONTAINER_ENGINE"
const Version = "0.2.0"
