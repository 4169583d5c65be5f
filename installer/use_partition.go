package installer

import (
	"fmt"

	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

// provisionUsePartition deletes one existing partition and rebuilds the
// target layout inside the freed region, reusing a boot partition found
// elsewhere on the disk when one exists.
func (o *Orchestrator) provisionUsePartition(plan InstallPlan) error {
	inspector := o.diskManager.GetInspector()
	mutator := o.diskManager.GetMutator()

	if plan.TargetPartition.IsEmpty() {
		return o.fail("No target partition specified")
	}

	// Selections may arrive as udev aliases; all comparisons and
	// mutations below run on the kernel device node.
	target := inspector.CanonicalPath(plan.TargetPartition)

	baseDisk, err := inspector.ResolveBaseDisk(target)
	if err != nil || baseDisk.IsEmpty() {
		return o.fail(fmt.Sprintf("Could not resolve the disk of selected partition `%s'", target))
	}
	if baseDisk != plan.DiskPath {
		return o.fail(fmt.Sprintf("Selected partition `%s' is not on target disk `%s'", target, plan.DiskPath))
	}

	partitionNumber := boshdisk.PartitionNumberFromPath(target)
	if partitionNumber == "" {
		return o.fail("Could not determine selected partition number")
	}

	// Geometry must be captured before the partition disappears.
	startStr, endStr, err := inspector.PartitionGeometry(plan.DiskPath, partitionNumber)
	if err != nil {
		return o.failErr(err, "Could not query selected partition geometry")
	}

	startMiB, endMiB, err := boshdisk.ToBounds(startStr, endStr)
	if err != nil {
		return o.failErr(err, "Invalid geometry for selected partition")
	}

	if plan.BootMode == BootModeEFI {
		existingESP, err := inspector.FindExistingESP(plan.DiskPath)
		if err != nil {
			return o.failErr(err, "Looking up existing ESP")
		}
		if !existingESP.IsEmpty() && inspector.CanonicalPath(existingESP) == target {
			return o.fail("Selected partition is the EFI System Partition. Please choose a different partition for root.")
		}
	}

	_, err = o.diskManager.GetMounter().Unmount(target.String())
	if err != nil {
		o.logger.Warn(o.logTag, "Unmounting %s: %s", target, err.Error())
	}

	o.transition(StatePartitioning, fmt.Sprintf("Deleting partition %s...", target))

	err = mutator.DeletePartition(plan.DiskPath, partitionNumber)
	if err != nil {
		return o.failErr(err, "Failed to delete selected partition")
	}
	mutator.RefreshPartitionTable(plan.DiskPath)

	if plan.BootMode == BootModeEFI {
		return o.rebuildEFIInRegion(plan, startMiB, endMiB)
	}

	return o.rebuildBIOSInRegion(plan, startMiB, endMiB)
}

func (o *Orchestrator) rebuildEFIInRegion(plan InstallPlan, startMiB, endMiB int64) error {
	inspector := o.diskManager.GetInspector()
	mutator := o.diskManager.GetMutator()
	formatter := o.diskManager.GetFormatter()
	mounter := o.diskManager.GetMounter()

	existingESP, err := inspector.FindExistingESP(plan.DiskPath)
	if err != nil {
		return o.failErr(err, "Looking up existing ESP")
	}

	if !existingESP.IsEmpty() {
		o.notify("Reusing existing ESP: %s", existingESP)

		rootNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "ext4", startMiB, endMiB-endReserveMiB)
		if err != nil {
			return o.failErr(err, "Could not create root partition in freed region")
		}

		o.transition(StateFormatting, "Formatting root as ext4...")
		err = formatter.FormatExt4(rootNode)
		if err != nil {
			return o.failErr(err, "Failed to format root")
		}
		formatter.CheckExt4(rootNode)

		o.transition(StateMounting, "Mounting root partition...")
		err = mounter.Mount(rootNode, boshdisk.StagingRootPath)
		if err != nil {
			return o.failErr(err, "Failed to mount root at "+boshdisk.StagingRootPath)
		}
		err = mounter.MountESP(existingESP)
		if err != nil {
			return o.failErr(err, "Failed to mount existing ESP at "+boshdisk.StagingESPPath)
		}

		return o.complete(rootNode, existingESP)
	}

	// No ESP anywhere on the disk: carve one from the freed region, then
	// the root, each detected by its own before/after diff.
	espEndMiB := startMiB + espSizeMiB
	if espEndMiB+endReserveMiB >= endMiB {
		return o.fail("Selected partition is too small to host ESP and root partitions")
	}

	espNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "fat32", startMiB, espEndMiB)
	if err != nil {
		return o.failErr(err, "Could not create ESP in freed region")
	}

	espNumber := boshdisk.PartitionNumberFromPath(espNode)
	if espNumber == "" {
		return o.fail("Could not determine ESP partition number")
	}
	err = mutator.SetName(plan.DiskPath, espNumber, "ESP")
	if err != nil {
		return o.failErr(err, "Failed to name ESP")
	}
	err = mutator.SetFlag(plan.DiskPath, espNumber, "esp")
	if err != nil {
		return o.failErr(err, "Failed to flag ESP")
	}

	rootNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "ext4", espEndMiB, endMiB-endReserveMiB)
	if err != nil {
		return o.failErr(err, "Could not create root partition in freed region")
	}

	o.transition(StateFormatting, "Formatting ESP as FAT32...")
	err = formatter.FormatFAT32(espNode)
	if err != nil {
		return o.failErr(err, "Failed to format ESP")
	}

	o.notify("Formatting root as ext4...")
	err = formatter.FormatExt4(rootNode)
	if err != nil {
		return o.failErr(err, "Failed to format root")
	}
	formatter.CheckExt4(rootNode)

	o.transition(StateMounting, "Mounting root partition...")
	err = mounter.Mount(rootNode, boshdisk.StagingRootPath)
	if err != nil {
		return o.failErr(err, "Failed to mount root at "+boshdisk.StagingRootPath)
	}
	err = mounter.MountESP(espNode)
	if err != nil {
		return o.failErr(err, "Failed to mount ESP at "+boshdisk.StagingESPPath)
	}

	return o.complete(rootNode, espNode)
}

func (o *Orchestrator) rebuildBIOSInRegion(plan InstallPlan, startMiB, endMiB int64) error {
	inspector := o.diskManager.GetInspector()
	mutator := o.diskManager.GetMutator()
	formatter := o.diskManager.GetFormatter()
	mounter := o.diskManager.GetMounter()

	existingBios, err := inspector.FindExistingBiosGrub(plan.DiskPath)
	if err != nil {
		return o.failErr(err, "Looking up existing bios_grub partition")
	}

	rootStartMiB := startMiB

	if !existingBios.IsEmpty() {
		o.notify("Found existing bios_grub partition: %s", existingBios)
	} else {
		biosEndMiB := startMiB + carveBiosSpanMiB
		if biosEndMiB >= endMiB {
			return o.fail("Selected partition is too small to host bios_grub and root partitions")
		}

		biosNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "", startMiB, biosEndMiB)
		if err != nil {
			return o.failErr(err, "Could not create bios_grub partition")
		}

		biosNumber := boshdisk.PartitionNumberFromPath(biosNode)
		if biosNumber == "" {
			return o.fail("Could not determine bios_grub partition number")
		}
		err = mutator.SetFlag(plan.DiskPath, biosNumber, "bios_grub")
		if err != nil {
			return o.failErr(err, "Failed to flag bios_grub partition")
		}
		o.notify("Created bios_grub partition: %s", biosNode)

		rootStartMiB = biosEndMiB
		if endMiB <= rootStartMiB+endReserveMiB {
			return o.fail("Remaining space after bios_grub is insufficient for root partition")
		}
	}

	rootNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "ext4", rootStartMiB, endMiB-endReserveMiB)
	if err != nil {
		return o.failErr(err, "Could not create root partition in freed region")
	}

	o.transition(StateFormatting, "Formatting root as ext4...")
	err = formatter.FormatExt4(rootNode)
	if err != nil {
		return o.failErr(err, "Failed to format root")
	}
	formatter.CheckExt4(rootNode)

	o.transition(StateMounting, "Mounting root partition...")
	err = mounter.Mount(rootNode, boshdisk.StagingRootPath)
	if err != nil {
		return o.failErr(err, "Failed to mount root at "+boshdisk.StagingRootPath)
	}

	return o.complete(rootNode, "")
}
