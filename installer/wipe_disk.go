package installer

import (
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

// provisionWipeDisk lays a fresh GPT across the whole disk: a boot
// partition (ESP or bios_grub) followed by a root spanning the remainder.
// This is the only path that identifies new partitions by position instead
// of diffing: the table starts empty and exactly two partitions are created
// in a known order.
func (o *Orchestrator) provisionWipeDisk(plan InstallPlan) error {
	inspector := o.diskManager.GetInspector()
	mutator := o.diskManager.GetMutator()

	if plan.BootMode == BootModeEFI {
		o.notify("Preparing disk for EFI (GPT + ESP + root)")
	} else {
		o.notify("Preparing disk for BIOS/GRUB (GPT + bios_grub + root)")
	}

	err := o.diskManager.GetDetacher().Detach(plan.DiskPath)
	if err != nil {
		o.logger.Warn(o.logTag, "Detaching %s: %s", plan.DiskPath, err.Error())
	}

	err = mutator.WipeSignatures(plan.DiskPath)
	if err != nil {
		o.logger.Warn(o.logTag, "Wiping signatures of %s: %s", plan.DiskPath, err.Error())
	}

	o.transition(StatePartitioning, "Creating GPT partition table...")

	err = mutator.CreateGPTLabel(plan.DiskPath)
	if err != nil {
		return o.failErr(err, "Failed to create GPT partition table")
	}
	mutator.RefreshPartitionTable(plan.DiskPath)

	diskSizeMiB, err := inspector.DiskSizeInMiB(plan.DiskPath)
	if err != nil {
		return o.failErr(err, "Could not determine disk size")
	}
	rootEndMiB := diskSizeMiB - endReserveMiB

	if plan.BootMode == BootModeEFI {
		if rootEndMiB <= wipeESPEndMiB {
			return o.fail("Disk is too small to host ESP and root partitions")
		}

		err = mutator.CreatePartition(plan.DiskPath, "fat32", wipeESPStartMiB, wipeESPEndMiB)
		if err != nil {
			return o.failErr(err, "Failed to create ESP")
		}
		err = mutator.SetName(plan.DiskPath, "1", "ESP")
		if err != nil {
			return o.failErr(err, "Failed to name ESP")
		}
		err = mutator.SetFlag(plan.DiskPath, "1", "esp")
		if err != nil {
			return o.failErr(err, "Failed to flag ESP")
		}

		err = mutator.CreatePartition(plan.DiskPath, "ext4", wipeESPEndMiB, rootEndMiB)
		if err != nil {
			return o.failErr(err, "Failed to create root partition")
		}
	} else {
		if rootEndMiB <= wipeBiosEndMiB {
			return o.fail("Disk is too small to host bios_grub and root partitions")
		}

		err = mutator.CreatePartition(plan.DiskPath, "", wipeBiosStartMiB, wipeBiosEndMiB)
		if err != nil {
			return o.failErr(err, "Failed to create bios_grub partition")
		}
		err = mutator.SetFlag(plan.DiskPath, "1", "bios_grub")
		if err != nil {
			return o.failErr(err, "Failed to flag bios_grub partition")
		}

		err = mutator.CreatePartition(plan.DiskPath, "ext4", wipeBiosEndMiB, rootEndMiB)
		if err != nil {
			return o.failErr(err, "Failed to create root partition")
		}
	}

	mutator.RefreshPartitionTable(plan.DiskPath)

	names, err := inspector.OrderedPartitionNames(plan.DiskPath)
	if err != nil || len(names) < 2 {
		return o.fail("Could not detect created partitions after wipe")
	}
	bootNode := boshdisk.NewDevicePath(names[0])
	rootNode := boshdisk.NewDevicePath(names[len(names)-1])

	o.transition(StateFormatting, "Formatting root as ext4...")

	formatter := o.diskManager.GetFormatter()

	if plan.BootMode == BootModeEFI {
		o.notify("Formatting ESP as FAT32...")
		err = formatter.FormatFAT32(bootNode)
		if err != nil {
			return o.failErr(err, "Failed to format ESP")
		}
	}

	err = formatter.FormatExt4(rootNode)
	if err != nil {
		return o.failErr(err, "Failed to format root partition")
	}
	formatter.CheckExt4(rootNode)

	o.transition(StateMounting, "Mounting new partitions...")

	mounter := o.diskManager.GetMounter()

	err = mounter.Mount(rootNode, boshdisk.StagingRootPath)
	if err != nil {
		return o.failErr(err, "Failed to mount root")
	}

	if plan.BootMode == BootModeEFI {
		err = mounter.MountESP(bootNode)
		if err != nil {
			return o.failErr(err, "Failed to mount ESP")
		}
		return o.complete(rootNode, bootNode)
	}

	return o.complete(rootNode, "")
}
