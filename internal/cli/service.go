package cli

import "alpine-chroot/internal/app"

// newAppService wires the production adapters and stamps the build
// version into the service.
func newAppService() app.Service {
	service := app.NewService()
	service.Version = version
	return service
}
