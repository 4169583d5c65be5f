package fakes

type FakeNotifier struct {
	LogMessages   []string
	ErrorMessages []string
	CompleteCount int
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (f *FakeNotifier) OnLog(message string) {
	f.LogMessages = append(f.LogMessages, message)
}

func (f *FakeNotifier) OnError(message string) {
	f.ErrorMessages = append(f.ErrorMessages, message)
}

func (f *FakeNotifier) OnComplete() {
	f.CompleteCount++
}
