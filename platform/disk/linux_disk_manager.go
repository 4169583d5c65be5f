package disk

import (
	"code.cloudfoundry.org/clock"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"

	boshudev "github.com/archaid/archaid-agent/platform/udevdevice"
)

type linuxDiskManager struct {
	inspector Inspector
	detacher  Detacher
	mutator   Mutator
	formatter Formatter
	mounter   Mounter
}

func NewLinuxDiskManager(
	logger boshlog.Logger,
	runner boshsys.CmdRunner,
	fs boshsys.FileSystem,
	timeService clock.Clock,
) Manager {
	udev := boshudev.NewConcreteUdevDevice(runner, logger)
	inspector := NewCmdInspector(runner, fs, logger)

	return linuxDiskManager{
		inspector: inspector,
		detacher:  NewLinuxDetacher(runner, fs, inspector, udev, timeService, logger),
		mutator:   NewPartedMutator(runner, inspector, udev, timeService, logger),
		formatter: NewLinuxFormatter(runner, logger),
		mounter:   NewLinuxMounter(runner, fs, logger),
	}
}

func (m linuxDiskManager) GetInspector() Inspector { return m.inspector }
func (m linuxDiskManager) GetDetacher() Detacher   { return m.detacher }
func (m linuxDiskManager) GetMutator() Mutator     { return m.mutator }
func (m linuxDiskManager) GetFormatter() Formatter { return m.formatter }
func (m linuxDiskManager) GetMounter() Mounter     { return m.mounter }
