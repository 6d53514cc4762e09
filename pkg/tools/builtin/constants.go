// Package builtin provides the concrete tools an agent can call: file
// access, shell execution, git inspection, a web fetch, and the control
// tools an agent uses to signal task outcome.
package builtin

// DangerousTools names the tool IDs the execution loop must gate behind a
// confirmation before running.
var DangerousTools = map[string]struct{}{
	"write_file":      {},
	"edit_file":       {},
	"execute_command": {},
	"git_add":         {},
	"git_commit":      {},
}

// SafeShellCommands is the shell-command whitelist used when a caller
// wants to restrict execute_command to known-benign base commands.
var SafeShellCommands = map[string]struct{}{
	"ls": {}, "pwd": {}, "echo": {}, "cat": {}, "head": {}, "tail": {},
	"grep": {}, "find": {}, "wc": {}, "sort": {}, "uniq": {}, "diff": {},
	"tree": {}, "file": {}, "stat": {}, "git": {}, "npm": {}, "pip": {},
	"python": {}, "node": {}, "cargo": {}, "go": {}, "mkdir": {}, "cp": {},
	"mv": {}, "touch": {}, "chmod": {}, "chown": {}, "which": {},
	"whereis": {}, "whoami": {}, "hostname": {}, "date": {}, "cal": {},
	"ps": {}, "top": {}, "df": {}, "du": {}, "free": {}, "uname": {},
}

// DangerousShellCommands is the shell-command blacklist checked regardless
// of whitelisting: these base commands are refused outright.
var DangerousShellCommands = map[string]struct{}{
	"rm": {}, "rmdir": {}, "dd": {}, "mkfs": {}, "fdisk": {}, "parted": {},
	"kill": {}, "killall": {}, "shutdown": {}, "reboot": {}, "halt": {},
	"sudo": {}, "su": {}, "passwd": {}, "useradd": {}, "userdel": {},
	"iptables": {}, "ufw": {}, "firewall-cmd": {}, "format": {}, "del": {},
	"deltree": {},
}
