package disk

import (
	"time"

	"code.cloudfoundry.org/clock"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshretry "github.com/cloudfoundry/bosh-utils/retrystrategy"
)

const (
	wipeRetryTimeout = 1 * time.Minute
	wipeRetryDelay   = 3 * time.Second
)

// NewSignatureWipeStrategy retries transient "device busy" failures while
// wiping signatures. Table mutations themselves are never retried.
func NewSignatureWipeStrategy(retryable boshretry.Retryable, timeService clock.Clock, logger boshlog.Logger) boshretry.RetryStrategy {
	return boshretry.NewTimeoutRetryStrategy(wipeRetryTimeout, wipeRetryDelay, retryable, timeService, logger)
}
