package udevdevice

// UdevDevice drives the kernel/udev side of partition-table changes:
// Trigger asks the kernel to re-read a device's table, Settle blocks until
// udev has created the corresponding device nodes.
type UdevDevice interface {
	Trigger(devicePath string) error
	Settle() error
}
