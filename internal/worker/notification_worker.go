package worker

import (
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/service"
)

// StartNotificationWorker subscribes donor alerts and requestor updates to the event dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
