package disk

import (
	"path"
	"strings"

	"code.cloudfoundry.org/clock"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"

	boshudev "github.com/archaid/archaid-agent/platform/udevdevice"
)

type linuxDetacher struct {
	runner      boshsys.CmdRunner
	fs          boshsys.FileSystem
	inspector   Inspector
	udev        boshudev.UdevDevice
	timeService clock.Clock
	logger      boshlog.Logger
	logTag      string
}

func NewLinuxDetacher(
	runner boshsys.CmdRunner,
	fs boshsys.FileSystem,
	inspector Inspector,
	udev boshudev.UdevDevice,
	timeService clock.Clock,
	logger boshlog.Logger,
) Detacher {
	return linuxDetacher{
		runner:      runner,
		fs:          fs,
		inspector:   inspector,
		udev:        udev,
		timeService: timeService,
		logger:      logger,
		logTag:      "LinuxDetacher",
	}
}

func (d linuxDetacher) PreflightUnmounts(diskPath DevicePath) error {
	d.unmountStaging()

	// Never touch host mounts on the disk backing the running root.
	if d.inspector.IsSystemDisk(diskPath) {
		d.settle()
		return nil
	}

	stdout, _, _, err := d.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE,MOUNTPOINT", diskPath.String())
	if err == nil {
		for _, line := range splitNonEmptyLines(stdout) {
			cols := strings.Fields(line)
			if len(cols) < 3 || cols[1] != "part" {
				continue
			}
			mountPoint := cols[2]
			if strings.HasPrefix(mountPoint, "/media/") ||
				strings.HasPrefix(mountPoint, "/run/media/") ||
				strings.HasPrefix(mountPoint, "/mnt/") {
				d.runBestEffort("umount", "-l", NewDevicePath(cols[0]).String())
			}
		}
	}

	d.settle()

	return nil
}

func (d linuxDetacher) Detach(diskPath DevicePath) error {
	d.unmountStaging()

	if d.inspector.IsSystemDisk(diskPath) {
		d.logger.Warn(d.logTag, "Target %s is the system disk; skipping device-wide unmounts and holder kills", diskPath)
		d.settle()
		return nil
	}

	partitionNames, err := d.inspector.PartitionNames(diskPath)
	if err != nil {
		d.logger.Warn(d.logTag, "Listing partitions of %s: %s", diskPath, err.Error())
		partitionNames = map[string]struct{}{}
	}

	for name := range partitionNames {
		d.runBestEffort("udisksctl", "unmount", "-b", NewDevicePath(name).String())
	}

	d.swapOffPartitions(partitionNames)
	d.closeLUKSMappings(partitionNames)
	d.deactivateVolumeGroups(partitionNames)
	d.killHolders(diskPath, partitionNames)
	d.removeDeviceMapperHolders(partitionNames)

	d.runBestEffort("blockdev", "--rereadpt", diskPath.String())
	d.runBestEffort("partprobe", diskPath.String())
	d.settle()
	d.timeService.Sleep(settleDelay)

	// Harmless when the device is not removable.
	d.runBestEffort("udisksctl", "power-off", "-b", diskPath.String())

	return nil
}

func (d linuxDetacher) unmountStaging() {
	d.runBestEffort("umount", "-Rl", StagingESPPath)
	d.runBestEffort("umount", "-Rl", StagingBootPath)
	d.runBestEffort("umount", "-Rl", StagingRootPath)
}

func (d linuxDetacher) swapOffPartitions(partitionNames map[string]struct{}) {
	swaps, err := d.fs.ReadFileString("/proc/swaps")
	if err != nil {
		return
	}

	for name := range partitionNames {
		node := NewDevicePath(name).String()
		if strings.Contains(swaps, node) {
			d.runBestEffort("swapoff", node)
		}
	}
}

func (d linuxDetacher) closeLUKSMappings(partitionNames map[string]struct{}) {
	for _, row := range d.blockDeviceRows() {
		name, deviceType, parent := row[0], row[1], row[2]
		if deviceType != "crypt" {
			continue
		}
		if _, onDisk := partitionNames[parent]; onDisk {
			d.runBestEffort("cryptsetup", "close", NewDevicePath(name).String())
		}
	}
}

func (d linuxDetacher) deactivateVolumeGroups(partitionNames map[string]struct{}) {
	groups := map[string]struct{}{}

	for _, row := range d.blockDeviceRows() {
		name, deviceType, parent := row[0], row[1], row[2]
		if deviceType != "lvm" && deviceType != "dm" {
			continue
		}
		if _, onDisk := partitionNames[parent]; !onDisk {
			continue
		}

		stdout, _, _, err := d.runner.RunCommand("lvs", "--noheadings", "-o", "vg_name", NewDevicePath(name).String())
		if err != nil {
			continue
		}
		group := strings.TrimSpace(stdout)
		if group != "" {
			groups[group] = struct{}{}
		}
	}

	for group := range groups {
		d.runBestEffort("vgchange", "-an", group)
	}
}

func (d linuxDetacher) killHolders(diskPath DevicePath, partitionNames map[string]struct{}) {
	nodes := []string{diskPath.String()}
	for name := range partitionNames {
		nodes = append(nodes, NewDevicePath(name).String())
	}

	// Safe only because the system-disk guard already passed.
	for _, node := range nodes {
		d.runBestEffort("fuser", "-km", node)
	}
}

func (d linuxDetacher) removeDeviceMapperHolders(partitionNames map[string]struct{}) {
	for name := range partitionNames {
		holders, err := d.fs.Glob("/sys/class/block/" + name + "/holders/*")
		if err != nil {
			continue
		}
		for _, holder := range holders {
			d.runBestEffort("dmsetup", "remove", "-f", path.Base(holder))
		}
	}
}

func (d linuxDetacher) blockDeviceRows() [][3]string {
	stdout, _, _, err := d.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE,PKNAME")
	if err != nil {
		return nil
	}

	var rows [][3]string
	for _, line := range splitNonEmptyLines(stdout) {
		cols := strings.Fields(line)
		if len(cols) < 3 {
			continue
		}
		rows = append(rows, [3]string{cols[0], cols[1], cols[2]})
	}

	return rows
}

func (d linuxDetacher) settle() {
	err := d.udev.Settle()
	if err != nil {
		d.logger.Debug(d.logTag, "Settling: %s", err.Error())
	}
}

func (d linuxDetacher) runBestEffort(cmd string, args ...string) {
	_, _, _, err := d.runner.RunCommand(cmd, args...)
	if err != nil {
		d.logger.Debug(d.logTag, "Best-effort `%s': %s", cmd, err.Error())
	}
}
