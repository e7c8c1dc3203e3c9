package ports

// ScriptWriterPort persists generated lifecycle scripts. Existing files
// are overwritten and the executable bit is always set.
type ScriptWriterPort interface {
	WriteScript(path string, content string) error
}
