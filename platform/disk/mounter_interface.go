package disk

type Mounter interface {
	Mount(partitionPath DevicePath, mountPoint string) error

	// MountESP mounts a partition at the staging ESP path, creating the
	// boot/efi directory first.
	MountESP(partitionPath DevicePath) error

	Unmount(partitionOrMountPoint string) (didUnmount bool, err error)

	// UnmountTree recursively and lazily unmounts a mount tree. Best effort.
	UnmountTree(mountPoint string)
}
