package disk

import (
	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

type linuxFormatter struct {
	runner boshsys.CmdRunner
	logger boshlog.Logger
	logTag string
}

func NewLinuxFormatter(runner boshsys.CmdRunner, logger boshlog.Logger) Formatter {
	return linuxFormatter{
		runner: runner,
		logger: logger,
		logTag: "LinuxFormatter",
	}
}

func (f linuxFormatter) FormatFAT32(partitionPath DevicePath) error {
	_, _, _, err := f.runner.RunCommand("mkfs.fat", "-F32", partitionPath.String())
	if err != nil {
		return bosherr.WrapErrorf(err, "Shelling out to mkfs.fat for `%s'", partitionPath)
	}

	return nil
}

func (f linuxFormatter) FormatExt4(partitionPath DevicePath) error {
	_, _, _, err := f.runner.RunCommand("mkfs.ext4", "-F", partitionPath.String())
	if err != nil {
		return bosherr.WrapErrorf(err, "Shelling out to mkfs.ext4 for `%s'", partitionPath)
	}

	return nil
}

func (f linuxFormatter) CheckExt4(partitionPath DevicePath) {
	_, _, _, err := f.runner.RunCommand("e2fsck", "-f", partitionPath.String())
	if err != nil {
		f.logger.Warn(f.logTag, "Consistency check of %s: %s", partitionPath, err.Error())
	}
}
