package notification

import (
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
)

type loggerNotifier struct {
	logger boshlog.Logger
	logTag string
}

// NewLoggerNotifier routes provisioning events to the process logger.
// Used when no UI collaborator is attached.
func NewLoggerNotifier(logger boshlog.Logger) Notifier {
	return loggerNotifier{
		logger: logger,
		logTag: "Notifier",
	}
}

func (n loggerNotifier) OnLog(message string) {
	n.logger.Info(n.logTag, "%s", message)
}

func (n loggerNotifier) OnError(message string) {
	n.logger.Error(n.logTag, "%s", message)
}

func (n loggerNotifier) OnComplete() {
	n.logger.Info(n.logTag, "Provisioning complete")
}
