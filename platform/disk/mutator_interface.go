package disk

// Mutator issues partition-table mutations. Every table mutation that
// exits non-zero is a hard failure; partially applied tables are not
// rolled back.
type Mutator interface {
	CreateGPTLabel(diskPath DevicePath) error

	// CreatePartition performs the mkpart mutation only; it does not
	// identify the resulting device node.
	CreatePartition(diskPath DevicePath, fsHint string, startMiB, endMiB int64) error

	// CreatePartitionAndDetect wraps CreatePartition with the before/after
	// kernel-name diff protocol. Zero or multiple new names after the
	// mutation is a failed identification, never resolved by guessing.
	CreatePartitionAndDetect(diskPath DevicePath, fsHint string, startMiB, endMiB int64) (DevicePath, error)

	SetFlag(diskPath DevicePath, partitionNumber, flag string) error
	SetName(diskPath DevicePath, partitionNumber, name string) error
	DeletePartition(diskPath DevicePath, partitionNumber string) error

	// WipeSignatures clears filesystem and partition-table signatures from
	// the whole disk ahead of a fresh GPT label.
	WipeSignatures(diskPath DevicePath) error

	// RefreshPartitionTable re-reads the table and waits for the kernel's
	// device nodes to settle. Best effort.
	RefreshPartitionTable(diskPath DevicePath)
}
