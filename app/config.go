package app

import (
	"encoding/json"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
	mapstruc "github.com/mitchellh/mapstructure"

	boshinst "github.com/archaid/archaid-agent/installer"
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

type Config struct {
	Disk     string
	BootMode string

	Strategy StrategyOptions

	// MountStatePath overrides where the run records its staging mounts.
	MountStatePath string
}

// StrategyOptions is used for unmarshalling different strategy types
type StrategyOptions interface {
	strategyOptionsInterface()
}

type WipeDiskOptions struct{}

func (o WipeDiskOptions) strategyOptionsInterface() {}

type UsePartitionOptions struct {
	Partition string
}

func (o UsePartitionOptions) strategyOptionsInterface() {}

type UseFreeSpaceOptions struct {
	// StartMiB/EndMiB pin a specific extent; both zero means pick the
	// largest free region on the disk.
	StartMiB int64
	EndMiB   int64
}

func (o UseFreeSpaceOptions) strategyOptionsInterface() {}

func LoadConfigFromPath(fs boshsys.FileSystem, path string) (Config, error) {
	var config Config

	if path == "" {
		return config, bosherr.Error("Missing config path")
	}

	bytes, err := fs.ReadFile(path)
	if err != nil {
		return config, bosherr.WrapError(err, "Reading file")
	}

	err = json.Unmarshal(bytes, &config)
	if err != nil {
		return config, bosherr.WrapError(err, "Loading file")
	}

	return config, nil
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var raw struct {
		Disk           string
		BootMode       string
		MountStatePath string
		Strategy       map[string]interface{}
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return bosherr.WrapError(err, "Unmarshalling config")
	}

	c.Disk = raw.Disk
	c.BootMode = raw.BootMode
	c.MountStatePath = raw.MountStatePath

	if raw.Strategy == nil {
		return bosherr.Error("Missing strategy")
	}

	optType, ok := raw.Strategy["Type"]
	if !ok {
		return bosherr.Error("Missing strategy type")
	}

	var opts StrategyOptions

	switch {
	case optType == "WipeDisk":
		var o WipeDiskOptions
		err, opts = mapstruc.Decode(raw.Strategy, &o), o

	case optType == "UsePartition":
		var o UsePartitionOptions
		err, opts = mapstruc.Decode(raw.Strategy, &o), o

	case optType == "UseFreeSpace":
		var o UseFreeSpaceOptions
		err, opts = mapstruc.Decode(raw.Strategy, &o), o

	default:
		err = bosherr.Errorf("Unknown strategy type '%s'", optType)
	}

	if err != nil {
		return bosherr.WrapErrorf(err, "Unmarshalling strategy type '%s'", optType)
	}

	c.Strategy = opts
	return nil
}

// InstallPlan translates file configuration into the plan the
// orchestrator consumes.
func (c Config) InstallPlan() (boshinst.InstallPlan, error) {
	plan := boshinst.InstallPlan{
		DiskPath: boshdisk.NewDevicePath(c.Disk),
	}

	switch c.BootMode {
	case "efi", "":
		plan.BootMode = boshinst.BootModeEFI
	case "bios":
		plan.BootMode = boshinst.BootModeBIOS
	default:
		return plan, bosherr.Errorf("Unknown boot mode '%s'", c.BootMode)
	}

	switch typedOpts := c.Strategy.(type) {
	case WipeDiskOptions:
		plan.Strategy = boshinst.StrategyWipeDisk

	case UsePartitionOptions:
		plan.Strategy = boshinst.StrategyUsePartition
		plan.TargetPartition = boshdisk.NewDevicePath(typedOpts.Partition)

	case UseFreeSpaceOptions:
		plan.Strategy = boshinst.StrategyUseFreeSpace
		if typedOpts.StartMiB != 0 || typedOpts.EndMiB != 0 {
			plan.Extent = &boshdisk.FreeExtent{
				StartMiB: typedOpts.StartMiB,
				EndMiB:   typedOpts.EndMiB,
			}
		}

	default:
		return plan, bosherr.Error("Missing strategy")
	}

	return plan, nil
}
