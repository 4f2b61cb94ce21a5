package handler

import (
	"github.com/d60-Lab/renthub/internal/repository"
	"github.com/d60-Lab/renthub/internal/service"
)

// Handler 聚合 HTTP 层依赖
type Handler struct {
	signupSvc  *service.SignupService
	listingSvc *service.ListingService
	bookingSvc *service.BookingService
	syncSvc    *service.SyncService
	controller *service.RetryController
	queue      repository.SyncQueueRepository
}

func New(
	signupSvc *service.SignupService,
	listingSvc *service.ListingService,
	bookingSvc *service.BookingService,
	syncSvc *service.SyncService,
	controller *service.RetryController,
	queue repository.SyncQueueRepository,
) *Handler {
	return &Handler{
		signupSvc:  signupSvc,
		listingSvc: listingSvc,
		bookingSvc: bookingSvc,
		syncSvc:    syncSvc,
		controller: controller,
		queue:      queue,
	}
}
