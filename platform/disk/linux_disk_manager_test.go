package disk_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	boshlog "github.com/cloudfoundry/bosh-utils/logger"
	fakesys "github.com/cloudfoundry/bosh-utils/system/fakes"

	boshdisk "github.com/archaid/archaid-agent/platform/disk"
	fakedisk "github.com/archaid/archaid-agent/platform/disk/fakes"
)

var _ = Describe("NewLinuxDiskManager", func() {
	It("returns a manager with all components wired", func() {
		logger := boshlog.NewLogger(boshlog.LevelNone)
		runner := fakesys.NewFakeCmdRunner()
		fs := fakesys.NewFakeFileSystem()

		manager := boshdisk.NewLinuxDiskManager(logger, runner, fs, &fakedisk.FakeClock{})

		Expect(manager.GetInspector()).ToNot(BeNil())
		Expect(manager.GetDetacher()).ToNot(BeNil())
		Expect(manager.GetMutator()).ToNot(BeNil())
		Expect(manager.GetFormatter()).ToNot(BeNil())
		Expect(manager.GetMounter()).ToNot(BeNil())
	})
})
