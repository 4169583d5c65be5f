package app

import (
	"code.cloudfoundry.org/clock"
	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"

	boshinst "github.com/archaid/archaid-agent/installer"
	boshnotif "github.com/archaid/archaid-agent/notification"
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

type App interface {
	Setup(args []string) error
	Run() error
}

type app struct {
	logger boshlog.Logger
	logTag string

	plan         boshinst.InstallPlan
	orchestrator *boshinst.Orchestrator
}

func New(logger boshlog.Logger) App {
	return &app{
		logger: logger,
		logTag: "App",
	}
}

func (app *app) Setup(args []string) error {
	if len(args) < 2 {
		return bosherr.Error("Usage: provisioner <config path>")
	}

	fs := boshsys.NewOsFileSystem(app.logger)

	config, err := LoadConfigFromPath(fs, args[1])
	if err != nil {
		return bosherr.WrapError(err, "Loading config")
	}

	app.plan, err = config.InstallPlan()
	if err != nil {
		return bosherr.WrapError(err, "Building install plan")
	}

	runner := boshsys.NewExecCmdRunner(app.logger)
	timeService := clock.NewClock()

	diskManager := boshdisk.NewLinuxDiskManager(app.logger, runner, fs, timeService)

	mountStatePath := config.MountStatePath
	if mountStatePath == "" {
		mountStatePath = boshinst.DefaultMountStatePath
	}
	stateStore := boshinst.NewMountStateStore(fs, mountStatePath)

	notifier := boshnotif.NewLoggerNotifier(app.logger)

	app.orchestrator = boshinst.NewOrchestrator(
		diskManager,
		stateStore,
		notifier,
		runner,
		app.logger,
	)

	return nil
}

func (app *app) Run() error {
	if err := app.orchestrator.Provision(app.plan); err != nil {
		return bosherr.WrapError(err, "Provisioning target disk")
	}
	return nil
}
