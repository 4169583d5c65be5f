package disk

import (
	"math"
	"strconv"
	"strings"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
)

// ToBounds converts parted's decimal MiB strings (for example "1.00MiB",
// "1,00MiB" under comma-decimal locales) into safe integer bounds: the start
// is rounded up and the end rounded down, so the integer range never exceeds
// the real extent. The start is clamped to 1MiB, the first usable MiB on GPT.
func ToBounds(startStr, endStr string) (startMiB, endMiB int64, err error) {
	start, err := parseMiB(startStr)
	if err != nil {
		return 0, 0, bosherr.WrapErrorf(err, "Parsing extent start `%s'", startStr)
	}

	end, err := parseMiB(endStr)
	if err != nil {
		return 0, 0, bosherr.WrapErrorf(err, "Parsing extent end `%s'", endStr)
	}

	startMiB = int64(math.Ceil(start))
	endMiB = int64(math.Floor(end))

	if startMiB < 1 {
		startMiB = 1
	}

	if startMiB >= endMiB {
		return 0, 0, bosherr.Errorf("Empty extent after rounding: start %dMiB, end %dMiB", startMiB, endMiB)
	}

	return startMiB, endMiB, nil
}

func parseMiB(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	for _, suffix := range []string{"MiB", "Mib", "miB", "mib", "MIB"} {
		trimmed = strings.TrimSuffix(trimmed, suffix)
	}
	trimmed = strings.ReplaceAll(trimmed, ",", ".")
	trimmed = strings.TrimSpace(trimmed)

	return strconv.ParseFloat(trimmed, 64)
}

// PartitionNodeFor builds the /dev node for partition `number` of a base
// device. Bases ending in a digit (nvme0n1, mmcblk0) take a "p" separator;
// others (sda, vdb) take the bare number.
func PartitionNodeFor(baseName string, number int) DevicePath {
	if baseName == "" {
		return ""
	}

	last := baseName[len(baseName)-1]
	if last >= '0' && last <= '9' {
		return DevicePath("/dev/" + baseName + "p" + strconv.Itoa(number))
	}

	return DevicePath("/dev/" + baseName + strconv.Itoa(number))
}

// PartitionNumberFromPath extracts the maximal trailing digit run of the
// final path component. An empty result means the node is not a partition
// (a whole-disk path such as /dev/sda).
func PartitionNumberFromPath(path DevicePath) string {
	name := string(path)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}

	return name[i:]
}
