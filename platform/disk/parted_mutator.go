package disk

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshretry "github.com/cloudfoundry/bosh-utils/retrystrategy"
	boshsys "github.com/cloudfoundry/bosh-utils/system"

	boshudev "github.com/archaid/archaid-agent/platform/udevdevice"
)

// settleDelay is the fixed blocking wait after every table mutation, so
// that subsequent reads never race the kernel's device-node creation.
const settleDelay = 1 * time.Second

type partedMutator struct {
	runner      boshsys.CmdRunner
	inspector   Inspector
	udev        boshudev.UdevDevice
	timeService clock.Clock
	logger      boshlog.Logger
	logTag      string
}

func NewPartedMutator(
	runner boshsys.CmdRunner,
	inspector Inspector,
	udev boshudev.UdevDevice,
	timeService clock.Clock,
	logger boshlog.Logger,
) Mutator {
	return partedMutator{
		runner:      runner,
		inspector:   inspector,
		udev:        udev,
		timeService: timeService,
		logger:      logger,
		logTag:      "PartedMutator",
	}
}

func (m partedMutator) CreateGPTLabel(diskPath DevicePath) error {
	_, _, _, err := m.runner.RunCommand("parted", diskPath.String(), "--script", "mklabel", "gpt")
	if err != nil {
		return bosherr.WrapErrorf(err, "Creating GPT label on `%s'", diskPath)
	}

	return nil
}

func (m partedMutator) CreatePartition(diskPath DevicePath, fsHint string, startMiB, endMiB int64) error {
	args := []string{diskPath.String(), "--script", "mkpart", "primary"}
	if fsHint != "" {
		args = append(args, fsHint)
	}
	args = append(args, fmt.Sprintf("%dMiB", startMiB), fmt.Sprintf("%dMiB", endMiB))

	_, _, _, err := m.runner.RunCommand("parted", args...)
	if err != nil {
		return bosherr.WrapErrorf(err, "Creating partition [%dMiB, %dMiB] on `%s'", startMiB, endMiB, diskPath)
	}

	return nil
}

func (m partedMutator) CreatePartitionAndDetect(diskPath DevicePath, fsHint string, startMiB, endMiB int64) (DevicePath, error) {
	before, err := m.inspector.PartitionNames(diskPath)
	if err != nil {
		return "", bosherr.WrapErrorf(err, "Snapshotting partitions of `%s'", diskPath)
	}

	err = m.CreatePartition(diskPath, fsHint, startMiB, endMiB)
	if err != nil {
		return "", err
	}

	m.RefreshPartitionTable(diskPath)

	after, err := m.inspector.PartitionNames(diskPath)
	if err != nil {
		return "", bosherr.WrapErrorf(err, "Re-reading partitions of `%s'", diskPath)
	}

	var created []string
	for name := range after {
		if _, existed := before[name]; !existed {
			created = append(created, name)
		}
	}

	if len(created) != 1 {
		return "", bosherr.Errorf("Could not uniquely identify new partition on `%s': %d candidates", diskPath, len(created))
	}

	node := NewDevicePath(created[0])
	m.logger.Info(m.logTag, "Detected new partition %s on %s", node, diskPath)

	return node, nil
}

func (m partedMutator) SetFlag(diskPath DevicePath, partitionNumber, flag string) error {
	_, _, _, err := m.runner.RunCommand("parted", diskPath.String(), "--script", "set", partitionNumber, flag, "on")
	if err != nil {
		return bosherr.WrapErrorf(err, "Setting flag `%s' on partition %s of `%s'", flag, partitionNumber, diskPath)
	}

	return nil
}

func (m partedMutator) SetName(diskPath DevicePath, partitionNumber, name string) error {
	_, _, _, err := m.runner.RunCommand("parted", diskPath.String(), "--script", "name", partitionNumber, name)
	if err != nil {
		return bosherr.WrapErrorf(err, "Naming partition %s of `%s'", partitionNumber, diskPath)
	}

	return nil
}

func (m partedMutator) DeletePartition(diskPath DevicePath, partitionNumber string) error {
	_, _, _, err := m.runner.RunCommand("parted", diskPath.String(), "--script", "rm", partitionNumber)
	if err != nil {
		return bosherr.WrapErrorf(err, "Deleting partition %s of `%s'", partitionNumber, diskPath)
	}

	return nil
}

func (m partedMutator) WipeSignatures(diskPath DevicePath) error {
	wipeRetryable := boshretry.NewRetryable(func() (bool, error) {
		_, _, _, err := m.runner.RunCommand("wipefs", "-a", diskPath.String())
		if err != nil {
			return true, bosherr.WrapErrorf(err, "Wiping signatures of `%s'", diskPath)
		}

		m.logger.Info(m.logTag, "Wiped signatures of %s", diskPath)
		return false, nil
	})

	err := NewSignatureWipeStrategy(wipeRetryable, m.timeService, m.logger).Try()
	if err != nil {
		return err
	}

	if m.runner.CommandExists("sgdisk") {
		_, _, _, err = m.runner.RunCommand("sgdisk", "--zap-all", "--clear", diskPath.String())
		if err != nil {
			m.logger.Warn(m.logTag, "Zapping GPT structures of %s: %s", diskPath, err.Error())
		}
	}

	_, _, _, err = m.runner.RunCommand("blockdev", "--rereadpt", diskPath.String())
	if err != nil {
		m.logger.Warn(m.logTag, "Re-reading partition table of %s: %s", diskPath, err.Error())
	}

	m.RefreshPartitionTable(diskPath)

	return nil
}

func (m partedMutator) RefreshPartitionTable(diskPath DevicePath) {
	err := m.udev.Trigger(diskPath.String())
	if err != nil {
		m.logger.Warn(m.logTag, "Probing %s: %s", diskPath, err.Error())
	}

	err = m.udev.Settle()
	if err != nil {
		m.logger.Warn(m.logTag, "Settling after mutation of %s: %s", diskPath, err.Error())
	}

	m.timeService.Sleep(settleDelay)
}
