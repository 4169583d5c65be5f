package disk

import (
	"fmt"
	"strings"
)

// DevicePath is an absolute /dev node path. Construct through NewDevicePath
// so that bare kernel names coming out of lsblk columns are normalized once,
// at the boundary, instead of re-checking "/dev/" prefixes everywhere.
type DevicePath string

func NewDevicePath(nameOrPath string) DevicePath {
	trimmed := strings.TrimSpace(nameOrPath)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "/") {
		return DevicePath(trimmed)
	}
	return DevicePath("/dev/" + trimmed)
}

func (p DevicePath) String() string { return string(p) }

func (p DevicePath) IsEmpty() bool { return p == "" }

// BaseName returns the kernel name ("sdb", "nvme0n1") for a /dev node.
func (p DevicePath) BaseName() string {
	return strings.TrimPrefix(string(p), "/dev/")
}

type Partition struct {
	Name             string
	Path             DevicePath
	ParentKernelName string
	FilesystemType   string
	PartitionType    string
	Label            string
	MountPoint       string
}

// FreeExtent is an unoccupied [StartMiB, EndMiB) interval on a disk.
type FreeExtent struct {
	StartMiB int64
	EndMiB   int64
}

func (e FreeExtent) SizeInMiB() int64 { return e.EndMiB - e.StartMiB }

func (e FreeExtent) String() string {
	return fmt.Sprintf("[%dMiB, %dMiB]", e.StartMiB, e.EndMiB)
}

// Staging mountpoints used while provisioning a target filesystem tree.
// Distinct from any host-user mounts; the detacher always clears these.
const (
	StagingRootPath = "/mnt"
	StagingBootPath = "/mnt/boot"
	StagingESPPath  = "/mnt/boot/efi"
)
