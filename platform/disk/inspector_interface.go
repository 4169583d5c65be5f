package disk

// Inspector reads block-device topology and disk geometry from the live
// system. All results are derived fresh on every call; nothing is cached
// between provisioning attempts.
type Inspector interface {
	ListPartitions(diskPath DevicePath) ([]Partition, error)

	// PartitionNames returns the set of child partition kernel names of a
	// disk. It is the snapshot primitive for before/after diff detection.
	PartitionNames(diskPath DevicePath) (map[string]struct{}, error)

	// OrderedPartitionNames returns child partition kernel names in listing
	// order, for the wipe-disk path where positions are exactly known.
	OrderedPartitionNames(diskPath DevicePath) ([]string, error)

	ListFreeExtents(diskPath DevicePath) ([]FreeExtent, error)
	DiskSizeInMiB(diskPath DevicePath) (int64, error)
	PartitionGeometry(diskPath DevicePath, partitionNumber string) (startStr, endStr string, err error)

	FindExistingESP(diskPath DevicePath) (DevicePath, error)
	FindExistingBiosGrub(diskPath DevicePath) (DevicePath, error)
	PartitionFilesystemType(partitionPath DevicePath) (string, error)

	// CanonicalPath resolves udev alias symlinks to the kernel device
	// node, returning the input unchanged when it does not resolve.
	CanonicalPath(path DevicePath) DevicePath

	// ResolveBaseDisk walks parent kernel names up to a disk-type node.
	// An empty result with a nil error means the chain did not reach a disk.
	ResolveBaseDisk(devicePath DevicePath) (DevicePath, error)

	// IsSystemDisk reports whether diskPath backs the currently mounted
	// root filesystem. It returns true only when both the running root and
	// diskPath resolve to the same canonical disk; any resolution failure
	// yields false.
	IsSystemDisk(diskPath DevicePath) bool
}
