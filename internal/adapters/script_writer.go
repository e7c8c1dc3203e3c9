package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/ports"
)

// FileScriptWriterAdapter persists generated lifecycle scripts.
// Regeneration overwrites; the executable bit is enforced even when an
// earlier run left a non-executable file behind.
type FileScriptWriterAdapter struct{}

func NewFileScriptWriterAdapter() FileScriptWriterAdapter {
	return FileScriptWriterAdapter{}
}

func (a FileScriptWriterAdapter) WriteScript(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create script directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write script").
			WithCause(err)
	}
	if err := os.Chmod(path, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to mark script executable").
			WithCause(err)
	}
	return nil
}

var _ ports.ScriptWriterPort = FileScriptWriterAdapter{}
