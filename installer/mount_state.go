package installer

import (
	"encoding/json"

	bosherr "github.com/cloudfoundry/bosh-utils/errors"
	boshsys "github.com/cloudfoundry/bosh-utils/system"
)

// DefaultMountStatePath is where a successful run records what was mounted
// where, for the OS-bootstrap collaborator to pick up.
const DefaultMountStatePath = "/tmp/archaid-target.json"

type MountState struct {
	Root string `json:"root"`
	ESP  string `json:"esp,omitempty"`
}

type MountStateStore struct {
	fs   boshsys.FileSystem
	path string
}

func NewMountStateStore(fs boshsys.FileSystem, path string) *MountStateStore {
	return &MountStateStore{fs: fs, path: path}
}

func (s *MountStateStore) Save(state MountState) error {
	contents, err := json.Marshal(state)
	if err != nil {
		return bosherr.WrapError(err, "Marshalling mount state")
	}

	err = s.fs.WriteFileString(s.path, string(contents)+"\n")
	if err != nil {
		return bosherr.WrapError(err, "Writing mount state file")
	}

	return nil
}

func (s *MountStateStore) Load() (MountState, bool, error) {
	var state MountState

	if !s.fs.FileExists(s.path) {
		return state, false, nil
	}

	contents, err := s.fs.ReadFile(s.path)
	if err != nil {
		return state, false, bosherr.WrapError(err, "Reading mount state file")
	}

	err = json.Unmarshal(contents, &state)
	if err != nil {
		return state, false, bosherr.WrapError(err, "Unmarshalling mount state file")
	}

	return state, true, nil
}

// Remove clears stale state ahead of a new run.
func (s *MountStateStore) Remove() error {
	err := s.fs.RemoveAll(s.path)
	if err != nil {
		return bosherr.WrapError(err, "Removing mount state file")
	}

	return nil
}
