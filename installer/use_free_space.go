package installer

import (
	"fmt"
	"strings"

	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

// provisionUseFreeSpace builds the target layout inside an unallocated
// region of the disk without touching any existing partition. The extent
// comes from the plan when one was selected, otherwise the largest free
// region on the disk is used.
func (o *Orchestrator) provisionUseFreeSpace(plan InstallPlan) error {
	inspector := o.diskManager.GetInspector()

	extent, err := o.selectFreeExtent(plan)
	if err != nil {
		return err
	}

	o.notify("Using free space %s on %s", extent, plan.DiskPath)

	if extent.EndMiB <= extent.StartMiB+minExtentMiB {
		return o.fail("Selected free space is too small.")
	}

	o.transition(StatePartitioning, "Creating partitions in free space...")

	if plan.BootMode == BootModeEFI {
		existingESP, err := inspector.FindExistingESP(plan.DiskPath)
		if err != nil {
			return o.failErr(err, "Looking up existing ESP")
		}

		if !existingESP.IsEmpty() {
			err = o.validateReusableESP(existingESP)
			if err != nil {
				return err
			}
			o.notify("Reusing existing ESP: %s", existingESP)

			rootNode, err := o.createRootInExtent(plan, extent.StartMiB, extent.EndMiB)
			if err != nil {
				return err
			}
			return o.formatAndMount(rootNode, existingESP, false)
		}

		if extent.EndMiB <= extent.StartMiB+espSizeMiB+minExtentMiB {
			return o.fail("Selected free space is too small to host ESP and root partitions")
		}

		espNode, err := o.createESPInExtent(plan, extent.StartMiB)
		if err != nil {
			return err
		}

		rootNode, err := o.createRootInExtent(plan, extent.StartMiB+espSizeMiB, extent.EndMiB)
		if err != nil {
			return err
		}
		return o.formatAndMount(rootNode, espNode, true)
	}

	// BIOS boot from free space: the root fills the extent and grub
	// embeds into an existing or freshly carved bios_grub partition
	// handled by the bootloader stage, so only the root is created here.
	rootNode, err := o.createRootInExtent(plan, extent.StartMiB, extent.EndMiB)
	if err != nil {
		return err
	}
	return o.formatAndMount(rootNode, "", false)
}

func (o *Orchestrator) selectFreeExtent(plan InstallPlan) (boshdisk.FreeExtent, error) {
	if plan.Extent != nil {
		return *plan.Extent, nil
	}

	extents, err := o.diskManager.GetInspector().ListFreeExtents(plan.DiskPath)
	if err != nil {
		return boshdisk.FreeExtent{}, o.failErr(err, "Listing free space")
	}

	var largest boshdisk.FreeExtent
	for _, extent := range extents {
		if extent.SizeInMiB() > largest.SizeInMiB() {
			largest = extent
		}
	}
	if largest.SizeInMiB() == 0 {
		return boshdisk.FreeExtent{}, o.fail("No suitable free space found.")
	}
	return largest, nil
}

// validateReusableESP refuses to mount a boot partition whose filesystem
// is not FAT; a broken ESP must be fixed by the user, not silently
// reformatted while other operating systems may boot from it.
func (o *Orchestrator) validateReusableESP(espPath boshdisk.DevicePath) error {
	fsType, err := o.diskManager.GetInspector().PartitionFilesystemType(espPath)
	if err != nil {
		return o.failErr(err, "Could not determine filesystem of existing ESP")
	}

	switch strings.ToLower(strings.TrimSpace(fsType)) {
	case "vfat", "fat32", "msdos":
		return nil
	}
	return o.fail(fmt.Sprintf("Existing ESP `%s' is not FAT32. Refusing to modify it.", espPath))
}

func (o *Orchestrator) createESPInExtent(plan InstallPlan, startMiB int64) (boshdisk.DevicePath, error) {
	mutator := o.diskManager.GetMutator()

	espNode, err := mutator.CreatePartitionAndDetect(plan.DiskPath, "fat32", startMiB, startMiB+espSizeMiB)
	if err != nil {
		return "", o.failErr(err, "Could not create ESP in free space")
	}

	espNumber := boshdisk.PartitionNumberFromPath(espNode)
	if espNumber == "" {
		return "", o.fail("Could not determine ESP partition number")
	}
	err = mutator.SetName(plan.DiskPath, espNumber, "ESP")
	if err != nil {
		return "", o.failErr(err, "Failed to name ESP")
	}
	err = mutator.SetFlag(plan.DiskPath, espNumber, "esp")
	if err != nil {
		return "", o.failErr(err, "Failed to flag ESP")
	}

	o.notify("Created ESP: %s", espNode)
	return espNode, nil
}

func (o *Orchestrator) createRootInExtent(plan InstallPlan, startMiB, endMiB int64) (boshdisk.DevicePath, error) {
	rootNode, err := o.diskManager.GetMutator().CreatePartitionAndDetect(plan.DiskPath, "ext4", startMiB, endMiB-endReserveMiB)
	if err != nil {
		return "", o.failErr(err, "Could not uniquely detect new root partition.")
	}

	o.notify("Created root partition: %s", rootNode)
	return rootNode, nil
}

// formatAndMount finishes any free-space provisioning: filesystems,
// staging mounts, persisted mount state. formatESP is false when the ESP
// already carried a filesystem before this run.
func (o *Orchestrator) formatAndMount(rootNode, espNode boshdisk.DevicePath, formatESP bool) error {
	formatter := o.diskManager.GetFormatter()
	mounter := o.diskManager.GetMounter()

	if formatESP {
		o.transition(StateFormatting, "Formatting ESP as FAT32...")
		err := formatter.FormatFAT32(espNode)
		if err != nil {
			return o.failErr(err, "Failed to format ESP")
		}
		o.notify("Formatting root as ext4...")
	} else {
		o.transition(StateFormatting, "Formatting root as ext4...")
	}

	err := formatter.FormatExt4(rootNode)
	if err != nil {
		return o.failErr(err, "Failed to format root")
	}
	formatter.CheckExt4(rootNode)

	o.transition(StateMounting, "Mounting root partition...")
	err = mounter.Mount(rootNode, boshdisk.StagingRootPath)
	if err != nil {
		return o.failErr(err, "Failed to mount root at "+boshdisk.StagingRootPath)
	}

	if !espNode.IsEmpty() {
		err = mounter.MountESP(espNode)
		if err != nil {
			return o.failErr(err, "Failed to mount ESP at "+boshdisk.StagingESPPath)
		}
	}

	return o.complete(rootNode, espNode)
}
