package disk

// Detacher releases everything holding a target device before destructive
// mutations. Every step is best effort except the system-disk guard: the
// disk backing the running root filesystem is never subjected to holder
// kills, swapoff, LUKS close, or VG deactivation.
type Detacher interface {
	// PreflightUnmounts clears the staging mount tree and, for non-system
	// disks, lazily unmounts externally-mounted partitions of the disk.
	PreflightUnmounts(diskPath DevicePath) error

	// Detach performs the full teardown: unmounts, swapoff, LUKS close,
	// VG deactivation, holder kill, device-mapper cleanup, table re-read.
	Detach(diskPath DevicePath) error
}
