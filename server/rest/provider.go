package rest

import (
	"sync"

	"github.com/mediahub-app/mediahub/server/internal/capability"
)

var (
	service *Service
	handler *Handler

	serviceOnce sync.Once
	handlerOnce sync.Once
)

func ProvideService(args *ContainerArgs) *Service {
	serviceOnce.Do(func() {
		service = NewService(args.Locator, args.Fetcher, args.Streams, args.Running)
	})
	return service
}

func ProvideHandler(svc *Service, policy capability.Policy) *Handler {
	handlerOnce.Do(func() {
		handler = NewHandler(svc, policy)
	})
	return handler
}
