package disk

import (
	"os"
	"strings"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

type linuxMounter struct {
	runner boshsys.CmdRunner
	fs     boshsys.FileSystem
	logger boshlog.Logger
	logTag string
}

func NewLinuxMounter(runner boshsys.CmdRunner, fs boshsys.FileSystem, logger boshlog.Logger) Mounter {
	return linuxMounter{
		runner: runner,
		fs:     fs,
		logger: logger,
		logTag: "LinuxMounter",
	}
}

func (m linuxMounter) Mount(partitionPath DevicePath, mountPoint string) error {
	_, _, _, err := m.runner.RunCommand("mount", partitionPath.String(), mountPoint)
	if err != nil {
		return bosherr.WrapErrorf(err, "Mounting `%s' at `%s'", partitionPath, mountPoint)
	}

	return nil
}

func (m linuxMounter) MountESP(partitionPath DevicePath) error {
	err := m.fs.MkdirAll(StagingESPPath, os.FileMode(0755))
	if err != nil {
		return bosherr.WrapErrorf(err, "Creating `%s'", StagingESPPath)
	}

	return m.Mount(partitionPath, StagingESPPath)
}

func (m linuxMounter) Unmount(partitionOrMountPoint string) (bool, error) {
	_, stderr, _, err := m.runner.RunCommand("umount", "-l", partitionOrMountPoint)
	if err != nil {
		if strings.Contains(stderr, "not mounted") || strings.Contains(stderr, "not currently mounted") {
			return false, nil
		}
		return false, bosherr.WrapErrorf(err, "Unmounting `%s'", partitionOrMountPoint)
	}

	return true, nil
}

func (m linuxMounter) UnmountTree(mountPoint string) {
	_, _, _, err := m.runner.RunCommand("umount", "-Rl", mountPoint)
	if err != nil {
		m.logger.Debug(m.logTag, "Unmounting tree `%s': %s", mountPoint, err.Error())
	}
}
