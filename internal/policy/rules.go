package policy

// Rule identifiers carried in Verdict.MatchedRule. Stable: external
// consumers (audit log, MCP clients, tests) match on these strings.
const (
	RuleBlockedApplication = "blocked_application"
	RuleDangerousPattern   = "dangerous_pattern"
	RuleProtectedProcess   = "protected_process"
	RuleProtectedService   = "protected_service"
	RuleDisallowedShell    = "disallowed_shell_command"
	RuleUnknownCommandType = "unknown_command_type"
)

// DefaultBlockedBinaries are never allowed as a start_app target.
// Grouped by capability: anything here either destroys data, escalates
// privileges, opens arbitrary code paths, or changes system state.
var DefaultBlockedBinaries = []string{
	// File destruction
	"rm", "rmdir", "shred", "unlink",
	// Disk operations
	"mkfs", "dd", "fdisk", "parted", "gdisk",
	// Mount operations
	"mount", "umount", "losetup",
	// User management
	"useradd", "userdel", "usermod", "passwd", "chpasswd",
	"groupadd", "groupdel", "groupmod",
	// Permission changes
	"chmod", "chown", "chgrp", "setfacl",
	// Network/firewall
	"iptables", "ip6tables", "nft", "ufw", "firewall-cmd",
	// Privilege escalation
	"sudo", "su", "pkexec", "doas",
	// System state
	"reboot", "shutdown", "poweroff", "halt", "init", "telinit",
	// Network fetchers
	"wget", "curl",
	"nc", "netcat", "ncat",
	// Interpreters
	"python", "python3", "perl", "ruby", "bash", "sh", "zsh",
	"eval", "exec",
	// Cron/scheduling
	"crontab", "at", "batch",
	// Kernel/modules
	"insmod", "rmmod", "modprobe",
}

// DefaultProtectedProcesses cannot be targeted by kill_process.
var DefaultProtectedProcesses = []string{
	"init", "systemd", "dbus", "udev", "kernel",
	"kthreadd", "kworker", "ksoftirqd",
}

// DefaultProtectedServices cannot be restarted. Disrupting any of these
// can deadlock the host or lock out the operator. Compared lowercased.
var DefaultProtectedServices = []string{
	"systemd", "init", "dbus", "udev",
	"networkmanager", "networking",
	"sshd", "ssh",
	"gdm", "lightdm", "sddm",
}

// DefaultAllowedShellCommands are the only base commands a shell_query
// pipeline segment may start with. Read-only inspection tools.
// A two-word entry restricts the second token as well: "systemctl status"
// admits systemctl only with the status verb.
var DefaultAllowedShellCommands = []string{
	"ps", "pgrep", "pidof",
	"grep", "egrep", "fgrep",
	"top", "htop",
	"free", "df", "du",
	"uptime", "uname", "hostname",
	"cat", "head", "tail", "less", "more",
	"ls", "find", "locate",
	"wc", "sort", "uniq",
	"date", "cal",
	"who", "w", "last",
	"systemctl status",
	"journalctl",
}

// Pattern is a dangerous-pattern rule: a regular expression over the
// target plus the human-readable reason returned on match.
type Pattern struct {
	Expr   string `yaml:"expr"`
	Reason string `yaml:"reason"`
}

// DefaultDangerousPatterns are checked in order; first match denies.
// The chaining pattern is listed first and is the one shell_query
// replaces with a [;&]-only scan (pipes separate query segments there).
var DefaultDangerousPatterns = []Pattern{
	{`[;&|]`, "Shell command chaining is not allowed"},
	{`\$\(`, "Command substitution is not allowed"},
	{"`", "Backtick command substitution is not allowed"},
	{`>\s*/`, "Output redirection to root filesystem is not allowed"},
	{`\.\.`, "Parent directory traversal is not allowed"},
	{`/etc/`, "Direct access to /etc is not allowed"},
	{`/root`, "Access to root home directory is not allowed"},
	{`/dev/`, "Direct device access is not allowed"},
	{`/proc/`, "Direct proc access is not allowed"},
	{`/sys/`, "Direct sys access is not allowed"},
}
