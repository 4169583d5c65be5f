package disk

type Manager interface {
	GetInspector() Inspector
	GetDetacher() Detacher
	GetMutator() Mutator
	GetFormatter() Formatter
	GetMounter() Mounter
}
