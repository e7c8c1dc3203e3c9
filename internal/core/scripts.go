package core

import (
	"strings"
	"text/template"

	"alpine-chroot/internal/types"
)

const (
	// EnterScriptName is the entry helper written at the chroot root.
	EnterScriptName = "enter-chroot"
	// DestroyScriptName is the teardown helper written at the chroot root.
	DestroyScriptName = "destroy"
)

type enterScriptData struct {
	EnvFilter    string
	EmulatorPath string
}

// enterTmpl renders the chroot entry helper. The script filters the
// caller's environment through the embedded regex, snapshots it to
// env.sh at the chroot root and logs in through the chroot's su with a
// cleared environment. The trailing command string receives "--" as $0
// so the caller's arguments land in $@ unshifted.
var enterTmpl = template.Must(template.New("enter").Parse(`#!/bin/sh
# Enters the Alpine Linux chroot this script lives in.
# Usage: enter-chroot [-u USER] [COMMAND...]
set -e

ENV_FILTER_REGEX='({{.EnvFilter}})'
{{- if .EmulatorPath}}
export QEMU_EMULATOR='{{.EmulatorPath}}'
{{- end}}

user='root'
if [ $# -ge 2 ] && [ "$1" = '-u' ]; then
	user="$2"; shift 2
fi

oldpwd="$(pwd)"
cd "$(dirname "$0")"

tmpfile="$(mktemp)"
chmod 644 "$tmpfile"
export | sed -En "s/^export ($ENV_FILTER_REGEX=)('.*'|\".*\"|[^ ]*)$/export \1\3/p" > "$tmpfile" || true

[ "$(id -u)" -eq 0 ] || _sudo='sudo'

$_sudo mv "$tmpfile" env.sh
exec $_sudo chroot . /usr/bin/env -i su -l "$user" \
	-c ". /etc/profile; . /env.sh; cd '$oldpwd' 2>/dev/null; \"\$@\"" -- "${@:-sh}"
`))

// destroyScript unmounts everything below its own directory, deepest
// mounts first, and optionally removes the tree. The single-filesystem
// delete flag is probed so a leftover mount is never traversed on hosts
// with GNU rm.
const destroyScript = `#!/bin/sh
# Unmounts and optionally removes the Alpine Linux chroot this script lives in.
# Usage: destroy [-r | --remove]
set -e

case "$1" in
	-r | --remove) remove=yes;;
	'') ;;
	*) echo "Usage: $0 [-r | --remove]" >&2; exit 1;;
esac

cd "$(dirname "$0")"
chroot_dir="$(pwd)"

[ "$(id -u)" -eq 0 ] || _sudo='sudo'

cut -d' ' -f2 /proc/mounts | grep "^$chroot_dir/" | sort -r | while read -r mnt; do
	echo "Unmounting $mnt" >&2
	$_sudo umount -fl "$mnt"
done

if [ "$remove" = yes ]; then
	if rm --help 2>&1 | grep -q -- --one-file-system; then
		$_sudo rm -rf --one-file-system "$chroot_dir"
	else
		$_sudo rm -rf "$chroot_dir"
	fi
else
	echo "Chroot kept. Remove it later with: $0 --remove" >&2
fi
`

// EnterScript renders the entry helper for the resolved configuration.
// emulatorPath is embedded as a literal export when emulation was
// provisioned; pass an empty string otherwise.
func EnterScript(cfg types.BootstrapConfig, emulatorPath string) (string, error) {
	alternation, err := BuildEnvAlternation(cfg.KeepEnvPatterns)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	data := enterScriptData{
		EnvFilter:    alternation,
		EmulatorPath: emulatorPath,
	}
	if err := enterTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DestroyScript returns the teardown helper. Its content does not
// depend on the configuration; the script discovers its mounts from
// /proc/mounts at run time.
func DestroyScript() string {
	return destroyScript
}
