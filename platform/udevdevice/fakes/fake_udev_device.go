package fakes

type FakeUdevDevice struct {
	TriggeredDevicePaths []string
	TriggerErr           error

	SettleCallCount int
	SettleErr       error
}

func NewFakeUdevDevice() *FakeUdevDevice {
	return &FakeUdevDevice{}
}

func (f *FakeUdevDevice) Trigger(devicePath string) error {
	f.TriggeredDevicePaths = append(f.TriggeredDevicePaths, devicePath)
	return f.TriggerErr
}

func (f *FakeUdevDevice) Settle() error {
	f.SettleCallCount++
	return f.SettleErr
}
