package runs

import (
	"github.com/vcnkl/settle/hashing"
	"github.com/vcnkl/settle/models"
)

type Validator struct {
	root  string
	store *Store
}

func NewValidator(root string, store *Store) *Validator {
	return &Validator{
		root:  root,
		store: store,
	}
}

// ShouldRun reports whether the task's inputs differ from its last
// successful run. Tasks without inputs always run.
func (v *Validator) ShouldRun(task *models.Task) (bool, string, error) {
	currentHash, err := hashing.HashInputs(v.root, task.Inputs)
	if err != nil {
		return true, currentHash, err
	}
	if currentHash == "" {
		return true, currentHash, nil
	}

	entry, ok := v.store.Get(task.Name)
	if !ok || !entry.Success {
		return true, currentHash, nil
	}

	return entry.InputHash != currentHash, currentHash, nil
}
