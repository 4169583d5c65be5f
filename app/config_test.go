package app_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	fakesys "github.com/cloudfoundry/bosh-utils/system/fakes"

	. "github.com/archaid/archaid-agent/app"
	boshinst "github.com/archaid/archaid-agent/installer"
	boshdisk "github.com/archaid/archaid-agent/platform/disk"
)

var _ = Describe("LoadConfigFromPath", func() {
	var fs *fakesys.FakeFileSystem

	BeforeEach(func() {
		fs = fakesys.NewFakeFileSystem()
	})

	It("loads a wipe-disk config", func() {
		err := fs.WriteFileString("/etc/provisioner.json", `{
			"Disk": "/dev/sdb",
			"BootMode": "efi",
			"Strategy": {"Type": "WipeDisk"}
		}`)
		Expect(err).ToNot(HaveOccurred())

		config, err := LoadConfigFromPath(fs, "/etc/provisioner.json")
		Expect(err).ToNot(HaveOccurred())
		Expect(config.Disk).To(Equal("/dev/sdb"))
		Expect(config.Strategy).To(Equal(WipeDiskOptions{}))
	})

	It("loads a use-partition config", func() {
		err := fs.WriteFileString("/etc/provisioner.json", `{
			"Disk": "/dev/sdb",
			"BootMode": "bios",
			"Strategy": {"Type": "UsePartition", "Partition": "/dev/sdb3"}
		}`)
		Expect(err).ToNot(HaveOccurred())

		config, err := LoadConfigFromPath(fs, "/etc/provisioner.json")
		Expect(err).ToNot(HaveOccurred())
		Expect(config.Strategy).To(Equal(UsePartitionOptions{Partition: "/dev/sdb3"}))
	})

	It("loads a use-free-space config with a pinned extent", func() {
		err := fs.WriteFileString("/etc/provisioner.json", `{
			"Disk": "/dev/sdb",
			"Strategy": {"Type": "UseFreeSpace", "StartMiB": 2048, "EndMiB": 10240}
		}`)
		Expect(err).ToNot(HaveOccurred())

		config, err := LoadConfigFromPath(fs, "/etc/provisioner.json")
		Expect(err).ToNot(HaveOccurred())
		Expect(config.Strategy).To(Equal(UseFreeSpaceOptions{StartMiB: 2048, EndMiB: 10240}))
	})

	It("errors on an unknown strategy type", func() {
		err := fs.WriteFileString("/etc/provisioner.json", `{
			"Disk": "/dev/sdb",
			"Strategy": {"Type": "Bogus"}
		}`)
		Expect(err).ToNot(HaveOccurred())

		_, err = LoadConfigFromPath(fs, "/etc/provisioner.json")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Unknown strategy type 'Bogus'"))
	})

	It("errors when the strategy is missing", func() {
		err := fs.WriteFileString("/etc/provisioner.json", `{"Disk": "/dev/sdb"}`)
		Expect(err).ToNot(HaveOccurred())

		_, err = LoadConfigFromPath(fs, "/etc/provisioner.json")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Missing strategy"))
	})

	It("errors on a missing path", func() {
		_, err := LoadConfigFromPath(fs, "")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Missing config path"))
	})

	It("errors when the file cannot be read", func() {
		_, err := LoadConfigFromPath(fs, "/does/not/exist.json")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Reading file"))
	})
})

var _ = Describe("Config", func() {
	Describe("InstallPlan", func() {
		It("translates a wipe-disk config", func() {
			config := Config{Disk: "/dev/sdb", BootMode: "efi", Strategy: WipeDiskOptions{}}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.DiskPath).To(Equal(boshdisk.DevicePath("/dev/sdb")))
			Expect(plan.BootMode).To(Equal(boshinst.BootModeEFI))
			Expect(plan.Strategy).To(Equal(boshinst.StrategyWipeDisk))
		})

		It("defaults the boot mode to EFI", func() {
			config := Config{Disk: "/dev/sdb", Strategy: WipeDiskOptions{}}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.BootMode).To(Equal(boshinst.BootModeEFI))
		})

		It("normalizes bare kernel names", func() {
			config := Config{Disk: "sdb", BootMode: "bios", Strategy: WipeDiskOptions{}}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.DiskPath).To(Equal(boshdisk.DevicePath("/dev/sdb")))
		})

		It("carries the selected partition", func() {
			config := Config{
				Disk:     "/dev/sdb",
				BootMode: "bios",
				Strategy: UsePartitionOptions{Partition: "/dev/sdb3"},
			}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.Strategy).To(Equal(boshinst.StrategyUsePartition))
			Expect(plan.TargetPartition).To(Equal(boshdisk.DevicePath("/dev/sdb3")))
		})

		It("pins an explicit free extent", func() {
			config := Config{
				Disk:     "/dev/sdb",
				BootMode: "efi",
				Strategy: UseFreeSpaceOptions{StartMiB: 2048, EndMiB: 10240},
			}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.Strategy).To(Equal(boshinst.StrategyUseFreeSpace))
			Expect(plan.Extent).To(Equal(&boshdisk.FreeExtent{StartMiB: 2048, EndMiB: 10240}))
		})

		It("leaves the extent unset when not pinned", func() {
			config := Config{Disk: "/dev/sdb", Strategy: UseFreeSpaceOptions{}}

			plan, err := config.InstallPlan()
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.Extent).To(BeNil())
		})

		It("rejects unknown boot modes", func() {
			config := Config{Disk: "/dev/sdb", BootMode: "openfirmware", Strategy: WipeDiskOptions{}}

			_, err := config.InstallPlan()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Unknown boot mode 'openfirmware'"))
		})

		It("rejects a config without a strategy", func() {
			config := Config{Disk: "/dev/sdb"}

			_, err := config.InstallPlan()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Missing strategy"))
		})
	})
})
