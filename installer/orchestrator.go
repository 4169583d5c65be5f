package installer

import (
	"fmt"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
	"github.com/gofrs/uuid"

	"github.com/archaid/archaid-agent/notification"
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

type State string

const (
	StateIdle         State = "idle"
	StateDetaching    State = "detaching"
	StatePartitioning State = "partitioning"
	StateFormatting   State = "formatting"
	StateMounting     State = "mounting"
	StateComplete     State = "complete"
	StateFailed       State = "failed"
)

const orchestratorLogTag = "Orchestrator"

const (
	espSizeMiB = 512

	wipeESPStartMiB  = 1
	wipeESPEndMiB    = 513
	wipeBiosStartMiB = 1
	wipeBiosEndMiB   = 3

	carveBiosSpanMiB = 2

	// Root always stops this much short of its region's end.
	endReserveMiB = 1

	// Usable free extents must extend further than this past their start.
	minExtentMiB = 10
)

// Orchestrator drives one disk's provisioning lifecycle from plan to
// mounted target tree. Single-flow: one instance, one disk, no
// interleaving; every external command blocks until completion.
type Orchestrator struct {
	diskManager boshdisk.Manager
	stateStore  *MountStateStore
	notifier    notification.Notifier
	runner      boshsys.CmdRunner
	logger      boshlog.Logger
	logTag      string

	state State
}

func NewOrchestrator(
	diskManager boshdisk.Manager,
	stateStore *MountStateStore,
	notifier notification.Notifier,
	runner boshsys.CmdRunner,
	logger boshlog.Logger,
) *Orchestrator {
	return &Orchestrator{
		diskManager: diskManager,
		stateStore:  stateStore,
		notifier:    notifier,
		runner:      runner,
		logger:      logger,
		logTag:      orchestratorLogTag,
		state:       StateIdle,
	}
}

func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) Provision(plan InstallPlan) error {
	o.state = StateIdle
	o.logTag = orchestratorLogTag

	runID, err := uuid.NewV4()
	if err != nil {
		o.logger.Warn(o.logTag, "Generating run ID: %s", err.Error())
	} else {
		// One tag per run; every log line below carries it.
		o.logTag = fmt.Sprintf("%s(%s)", orchestratorLogTag, runID)
	}
	o.logger.Debug(o.logTag, "Starting provisioning run")

	if !o.runner.CommandExists("parted") {
		return o.fail("parted not found")
	}

	if plan.DiskPath.IsEmpty() {
		return o.fail("No target disk specified")
	}

	err = o.stateStore.Remove()
	if err != nil {
		o.logger.Warn(o.logTag, "Removing stale mount state: %s", err.Error())
	}

	o.notify("Boot mode: %s", plan.BootMode)

	o.transition(StateDetaching, "Preparing mounts...")
	err = o.diskManager.GetDetacher().PreflightUnmounts(plan.DiskPath)
	if err != nil {
		o.logger.Warn(o.logTag, "Preflight unmounts: %s", err.Error())
	}

	switch plan.Strategy {
	case StrategyWipeDisk:
		return o.provisionWipeDisk(plan)
	case StrategyUsePartition:
		return o.provisionUsePartition(plan)
	case StrategyUseFreeSpace:
		return o.provisionUseFreeSpace(plan)
	}

	return o.fail(fmt.Sprintf("Unknown provisioning strategy `%s'", plan.Strategy))
}

func (o *Orchestrator) transition(state State, message string) {
	o.state = state
	if message != "" {
		o.notify("%s", message)
	}
}

func (o *Orchestrator) notify(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	o.logger.Info(o.logTag, "%s", message)
	o.notifier.OnLog(message)
}

// fail moves to the terminal Failed state and surfaces a single
// operator-facing message. The disk may be left partially modified; there
// is no rollback of applied table mutations.
func (o *Orchestrator) fail(message string) error {
	o.state = StateFailed
	o.logger.Error(o.logTag, "%s", message)
	o.notifier.OnError(message)
	return bosherr.Error(message)
}

func (o *Orchestrator) failErr(err error, message string) error {
	wrapped := bosherr.WrapError(err, message)
	o.state = StateFailed
	o.logger.Error(o.logTag, "%s", wrapped.Error())
	o.notifier.OnError(wrapped.Error())
	return wrapped
}

func (o *Orchestrator) complete(rootNode, espNode boshdisk.DevicePath) error {
	state := MountState{Root: rootNode.String()}
	if !espNode.IsEmpty() {
		state.ESP = espNode.String()
	}

	err := o.stateStore.Save(state)
	if err != nil {
		return o.failErr(err, "Recording target mount state")
	}

	o.state = StateComplete
	o.notifier.OnComplete()

	return nil
}
