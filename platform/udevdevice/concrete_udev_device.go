package udevdevice

import (
	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

type ConcreteUdevDevice struct {
	runner boshsys.CmdRunner
	logger boshlog.Logger
	logTag string
}

func NewConcreteUdevDevice(runner boshsys.CmdRunner, logger boshlog.Logger) ConcreteUdevDevice {
	return ConcreteUdevDevice{
		runner: runner,
		logger: logger,
		logTag: "ConcreteUdevDevice",
	}
}

func (udev ConcreteUdevDevice) Trigger(devicePath string) error {
	_, _, _, err := udev.runner.RunCommand("partprobe", devicePath)
	if err != nil {
		return bosherr.WrapErrorf(err, "Probing partition table of `%s'", devicePath)
	}

	return nil
}

func (udev ConcreteUdevDevice) Settle() error {
	udev.logger.Debug(udev.logTag, "Waiting for udev to settle")

	_, _, _, err := udev.runner.RunCommand("udevadm", "settle")
	if err != nil {
		return bosherr.WrapError(err, "Running udevadm settle")
	}

	return nil
}
