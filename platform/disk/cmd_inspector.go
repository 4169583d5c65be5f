package disk

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

const espPartitionTypeGUID = "c12a7328-f81f-11d2-ba4b-00a0c93ec93b"

// Depth guard for dm-crypt -> lvm -> partition -> disk chains.
const maxBaseDiskHops = 6

var nonNumericChars = regexp.MustCompile(`[^0-9.,]`)

type cmdInspector struct {
	runner boshsys.CmdRunner
	fs     boshsys.FileSystem
	logger boshlog.Logger
	logTag string
}

func NewCmdInspector(runner boshsys.CmdRunner, fs boshsys.FileSystem, logger boshlog.Logger) Inspector {
	return cmdInspector{
		runner: runner,
		fs:     fs,
		logger: logger,
		logTag: "CmdInspector",
	}
}

func (i cmdInspector) ListPartitions(diskPath DevicePath) ([]Partition, error) {
	stdout, _, _, err := i.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE,PKNAME,PARTTYPE,PARTLABEL,FSTYPE,MOUNTPOINT")
	if err != nil {
		return nil, bosherr.WrapError(err, "Listing block devices")
	}

	base := diskPath.BaseName()
	var partitions []Partition

	for _, row := range splitNonEmptyLines(stdout) {
		cols := strings.Fields(row)
		if len(cols) < 3 || cols[1] != "part" || cols[2] != base {
			continue
		}

		partition := Partition{
			Name:             cols[0],
			Path:             NewDevicePath(cols[0]),
			ParentKernelName: cols[2],
		}
		if len(cols) > 3 {
			partition.PartitionType = strings.ToLower(cols[3])
		}
		if len(cols) > 4 {
			partition.Label = strings.ToLower(cols[4])
		}
		if len(cols) > 5 {
			partition.FilesystemType = strings.ToLower(cols[5])
		}
		if len(cols) > 6 {
			partition.MountPoint = cols[6]
		}

		partitions = append(partitions, partition)
	}

	return partitions, nil
}

func (i cmdInspector) PartitionNames(diskPath DevicePath) (map[string]struct{}, error) {
	stdout, _, _, err := i.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE,PKNAME")
	if err != nil {
		return nil, bosherr.WrapError(err, "Listing block devices")
	}

	base := diskPath.BaseName()
	names := map[string]struct{}{}

	for _, row := range splitNonEmptyLines(stdout) {
		cols := strings.Fields(row)
		if len(cols) < 3 {
			continue
		}
		if cols[1] == "part" && cols[2] == base {
			names[cols[0]] = struct{}{}
		}
	}

	return names, nil
}

func (i cmdInspector) OrderedPartitionNames(diskPath DevicePath) ([]string, error) {
	stdout, _, _, err := i.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE", diskPath.String())
	if err != nil {
		return nil, bosherr.WrapErrorf(err, "Listing partitions of `%s'", diskPath)
	}

	var names []string
	for _, row := range splitNonEmptyLines(stdout) {
		cols := strings.Fields(row)
		if len(cols) < 2 || cols[1] != "part" {
			continue
		}
		names = append(names, cols[0])
	}

	return names, nil
}

func (i cmdInspector) ListFreeExtents(diskPath DevicePath) ([]FreeExtent, error) {
	stdout, _, _, err := i.runner.RunCommand("parted", "-m", diskPath.String(), "unit", "MiB", "print", "free")
	if err != nil {
		return nil, bosherr.WrapErrorf(err, "Printing free extents of `%s'", diskPath)
	}

	var extents []FreeExtent

	for _, rawLine := range splitNonEmptyLines(stdout) {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "BYT") || strings.HasPrefix(line, "/dev/") {
			continue
		}

		cols := strings.Split(line, ":")
		if len(cols) < 4 {
			continue
		}

		isFree := false
		for _, col := range cols {
			if strings.EqualFold(strings.TrimSuffix(strings.TrimSpace(col), ";"), "free") {
				isFree = true
				break
			}
		}
		if !isFree {
			continue
		}

		start, okStart := looseMiBValue(cols[1])
		end, okEnd := looseMiBValue(cols[2])
		size, okSize := looseMiBValue(cols[3])
		if !okStart || !okEnd || !okSize {
			continue
		}
		if size < 1 || end <= start {
			continue
		}

		extents = append(extents, FreeExtent{
			StartMiB: int64(math.Round(start)),
			EndMiB:   int64(math.Round(end)),
		})
	}

	return extents, nil
}

func (i cmdInspector) DiskSizeInMiB(diskPath DevicePath) (int64, error) {
	stdout, _, _, err := i.runner.RunCommand("parted", "-m", diskPath.String(), "unit", "MiB", "print")
	if err != nil {
		return 0, bosherr.WrapErrorf(err, "Printing partition table of `%s'", diskPath)
	}

	for _, line := range splitNonEmptyLines(stdout) {
		if !strings.HasPrefix(line, diskPath.String()+":") {
			continue
		}
		cols := strings.Split(line, ":")
		if len(cols) < 2 {
			continue
		}
		size, ok := looseMiBValue(cols[1])
		if !ok || size <= 0 {
			continue
		}
		return int64(math.Floor(size)), nil
	}

	return 0, bosherr.Errorf("Could not determine size of `%s'", diskPath)
}

func (i cmdInspector) PartitionGeometry(diskPath DevicePath, partitionNumber string) (string, string, error) {
	stdout, _, _, err := i.runner.RunCommand("parted", "-m", diskPath.String(), "unit", "MiB", "print")
	if err != nil {
		return "", "", bosherr.WrapErrorf(err, "Printing partition table of `%s'", diskPath)
	}

	for _, row := range partedPartitionRows(stdout) {
		if strings.TrimSpace(row.cols[0]) == partitionNumber {
			return row.cols[1], row.cols[2], nil
		}
	}

	return "", "", bosherr.Errorf("No partition numbered `%s' on `%s'", partitionNumber, diskPath)
}

func (i cmdInspector) FindExistingESP(diskPath DevicePath) (DevicePath, error) {
	partitions, err := i.ListPartitions(diskPath)
	if err != nil {
		return "", err
	}

	for _, partition := range partitions {
		if partition.PartitionType == espPartitionTypeGUID ||
			strings.Contains(partition.Label, "esp") ||
			strings.Contains(partition.Label, "efi system") ||
			partition.FilesystemType == "vfat" ||
			partition.FilesystemType == "fat32" {
			return partition.Path, nil
		}
	}

	// Fall back to parted's boot flags for tables lsblk cannot classify.
	return i.findFlaggedPartition(diskPath, "esp")
}

func (i cmdInspector) FindExistingBiosGrub(diskPath DevicePath) (DevicePath, error) {
	return i.findFlaggedPartition(diskPath, "bios_grub")
}

func (i cmdInspector) findFlaggedPartition(diskPath DevicePath, flag string) (DevicePath, error) {
	stdout, _, _, err := i.runner.RunCommand("parted", "-m", diskPath.String(), "unit", "MiB", "print")
	if err != nil {
		return "", bosherr.WrapErrorf(err, "Printing partition table of `%s'", diskPath)
	}

	base := diskPath.BaseName()

	for _, row := range partedPartitionRows(stdout) {
		if len(row.cols) < 7 {
			continue
		}
		flags := strings.ToLower(row.cols[6])
		if strings.Contains(flags, flag) {
			return PartitionNodeFor(base, row.number), nil
		}
	}

	return "", nil
}

func (i cmdInspector) PartitionFilesystemType(partitionPath DevicePath) (string, error) {
	stdout, _, _, err := i.runner.RunCommand("lsblk", "-no", "FSTYPE", partitionPath.String())
	if err != nil {
		return "", bosherr.WrapErrorf(err, "Reading filesystem type of `%s'", partitionPath)
	}

	return strings.ToLower(strings.TrimSpace(stdout)), nil
}

func (i cmdInspector) ResolveBaseDisk(devicePath DevicePath) (DevicePath, error) {
	current := devicePath
	if !strings.HasPrefix(current.String(), "/dev/") {
		return "", nil
	}

	for hop := 0; hop < maxBaseDiskHops; hop++ {
		stdout, _, _, err := i.runner.RunCommand("lsblk", "-ln", "-o", "NAME,TYPE,PKNAME", current.String())
		if err != nil {
			return "", bosherr.WrapErrorf(err, "Resolving base disk of `%s'", devicePath)
		}

		lines := splitNonEmptyLines(stdout)
		if len(lines) == 0 {
			break
		}

		cols := strings.Fields(lines[0])
		if len(cols) < 2 {
			break
		}

		if cols[1] == "disk" {
			return NewDevicePath(cols[0]), nil
		}
		if len(cols) >= 3 && cols[2] != "" {
			current = NewDevicePath(cols[2])
			continue
		}

		break
	}

	return "", nil
}

func (i cmdInspector) IsSystemDisk(diskPath DevicePath) bool {
	rootSource := i.rootSourceDevice()
	if rootSource.IsEmpty() {
		return false
	}

	rootDisk, err := i.ResolveBaseDisk(rootSource)
	if err != nil || rootDisk.IsEmpty() {
		return false
	}

	targetDisk, err := i.ResolveBaseDisk(diskPath)
	if err != nil || targetDisk.IsEmpty() {
		return false
	}

	return i.canonicalPath(rootDisk) == i.canonicalPath(targetDisk)
}

// rootSourceDevice finds the device backing the mounted root "/",
// resolving UUID=/LABEL= indirections through blkid.
func (i cmdInspector) rootSourceDevice() DevicePath {
	stdout, _, _, err := i.runner.RunCommand("findmnt", "-no", "SOURCE", "/")
	source := strings.TrimSpace(stdout)
	if err != nil || source == "" {
		source = i.rootSourceFromProcMounts()
	}

	if source == "" {
		return ""
	}

	if !strings.HasPrefix(source, "/dev/") {
		switch {
		case strings.HasPrefix(source, "UUID="):
			source = i.resolveBlkidTag("-U", strings.TrimPrefix(source, "UUID="), source)
		case strings.HasPrefix(source, "LABEL="):
			source = i.resolveBlkidTag("-L", strings.TrimPrefix(source, "LABEL="), source)
		}
	}

	if !strings.HasPrefix(source, "/dev/") {
		return ""
	}

	return DevicePath(source)
}

func (i cmdInspector) rootSourceFromProcMounts() string {
	contents, err := i.fs.ReadFileString("/proc/mounts")
	if err != nil {
		return ""
	}

	for _, line := range splitNonEmptyLines(contents) {
		cols := strings.Fields(line)
		if len(cols) >= 2 && cols[1] == "/" {
			return cols[0]
		}
	}

	return ""
}

func (i cmdInspector) resolveBlkidTag(flag, value, fallback string) string {
	stdout, _, _, err := i.runner.RunCommand("blkid", flag, value)
	resolved := strings.TrimSpace(stdout)
	if err != nil || !strings.HasPrefix(resolved, "/dev/") {
		return fallback
	}
	return resolved
}

// CanonicalPath resolves udev alias symlinks (/dev/disk/by-id,
// /dev/disk/by-uuid) to the kernel device node. Paths that do not
// resolve are returned unchanged.
func (i cmdInspector) CanonicalPath(path DevicePath) DevicePath {
	return DevicePath(i.canonicalPath(path))
}

func (i cmdInspector) canonicalPath(path DevicePath) string {
	resolved, err := i.fs.ReadAndFollowLink(path.String())
	if err != nil || resolved == "" {
		return path.String()
	}
	return resolved
}

// partedPartitionRows yields the numbered partition rows of parted -m
// machine output as colon-split columns with trailing semicolons removed.
func partedPartitionRows(stdout string) []partedRow {
	var rows []partedRow

	for _, rawLine := range splitNonEmptyLines(stdout) {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "BYT") || strings.HasPrefix(line, "/dev/") {
			continue
		}

		cols := strings.Split(strings.TrimSuffix(line, ";"), ":")
		if len(cols) < 3 {
			continue
		}

		number, err := strconv.Atoi(strings.TrimSpace(cols[0]))
		if err != nil || number < 1 {
			continue
		}

		rows = append(rows, partedRow{number: number, cols: cols})
	}

	return rows
}

type partedRow struct {
	number int
	cols   []string
}

func looseMiBValue(value string) (float64, bool) {
	stripped := nonNumericChars.ReplaceAllString(value, "")
	stripped = strings.ReplaceAll(stripped, ",", ".")
	if stripped == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, false
	}

	return parsed, true
}

func splitNonEmptyLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
