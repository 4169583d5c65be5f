package disk

type Formatter interface {
	FormatFAT32(partitionPath DevicePath) error
	FormatExt4(partitionPath DevicePath) error

	// CheckExt4 runs a consistency pass after formatting. Non-fatal.
	CheckExt4(partitionPath DevicePath)
}
