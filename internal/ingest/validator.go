package ingest

import (
	"os"
)

// FileValidator checks a candidate file is present, readable and non-empty
// before parsing is attempted.
type FileValidator struct{}

func NewFileValidator() *FileValidator {
	return &FileValidator{}
}

func (v *FileValidator) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ValidationError{Path: path, Reason: ReasonNotFound}
		}
		return &ValidationError{Path: path, Reason: err.Error()}
	}
	if info.IsDir() {
		return &ValidationError{Path: path, Reason: ReasonNotRegular}
	}
	if info.Size() == 0 {
		return &ValidationError{Path: path, Reason: ReasonEmptyFile}
	}

	f, err := os.Open(path)
	if err != nil {
		return &ValidationError{Path: path, Reason: ReasonNotReadable}
	}
	f.Close()

	return nil
}
