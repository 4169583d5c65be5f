package installer

import (
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

type BootMode string

const (
	BootModeEFI  BootMode = "efi"
	BootModeBIOS BootMode = "bios"
)

type Strategy string

const (
	StrategyWipeDisk     Strategy = "wipe-disk"
	StrategyUsePartition Strategy = "use-partition"
	StrategyUseFreeSpace Strategy = "use-free-space"
)

// InstallPlan is the ephemeral request for one provisioning run.
type InstallPlan struct {
	DiskPath boshdisk.DevicePath
	BootMode BootMode
	Strategy Strategy

	// TargetPartition is required for StrategyUsePartition.
	TargetPartition boshdisk.DevicePath

	// Extent optionally pins StrategyUseFreeSpace to an explicit extent;
	// nil selects the largest free extent on the disk.
	Extent *boshdisk.FreeExtent
}
