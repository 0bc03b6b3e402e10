package permission

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

type rule struct {
	re             *regexp.Regexp
	level          Level
	description    string
	recommendation string
}

type ruleSet struct {
	category Category
	rules    []rule
}

func (rs ruleSet) detect(values []string) []Threat {
	var out []Threat
	for _, r := range rs.rules {
		for _, v := range values {
			if m := r.re.FindString(v); m != "" {
				out = append(out, Threat{
					Category:       rs.category,
					Level:          r.level,
					Description:    r.description,
					Pattern:        m,
					Recommendation: r.recommendation,
				})
				break
			}
		}
	}
	return out
}

func mustRule(expr string, level Level, desc, rec string) rule {
	return rule{re: regexp.MustCompile(expr), level: level, description: desc, recommendation: rec}
}

var maliciousCommands = ruleSet{
	category: CategoryMaliciousCommand,
	rules: []rule{
		mustRule(`\brm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\s+(-[a-zA-Z]+\s+)*(/|~|\$HOME|\*)(\s|$|/\*)`, LevelCritical,
			"recursive deletion of a root, home or wildcard path", "delete specific paths inside the workspace instead"),
		mustRule(`\bmkfs(\.\w+)?\s`, LevelCritical, "filesystem creation", ""),
		mustRule(`\bdd\s+.*\bof=/dev/(sd|hd|nvme|disk|xvd)`, LevelCritical, "raw write to a block device", ""),
		mustRule(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`, LevelCritical, "fork bomb", ""),
		mustRule(`>\s*/dev/(sd|hd|nvme|disk)`, LevelCritical, "redirect into a block device", ""),
		mustRule(`\bchmod\s+(-[a-zA-Z]+\s+)*-R\s+0?777\s+/`, LevelHigh, "recursive world-writable permissions", ""),
		mustRule(`\bshred\s`, LevelHigh, "irrecoverable file destruction", ""),
		mustRule(`\bgit\s+push\s+.*(--force|-f)\b`, LevelMedium, "force push rewrites remote history", "use --force-with-lease"),
		mustRule(`\bgit\s+reset\s+--hard\b`, LevelMedium, "discards uncommitted work", ""),
	},
}

var networkExfiltration = ruleSet{
	category: CategoryNetworkExfiltration,
	rules: []rule{
		mustRule(`\bcurl\s+.*(\s-d\b|\s--data(-\w+)?\b|\s-F\b|\s--form\b|\s-T\b|\s--upload-file\b)`, LevelHigh,
			"uploads data to a remote host", "review the destination and payload"),
		mustRule(`\bwget\s+.*--post-(data|file)`, LevelHigh, "uploads data to a remote host", ""),
		mustRule(`/dev/(tcp|udp)/`, LevelHigh, "raw network socket through the shell", ""),
		mustRule(`\b(nc|ncat|netcat)\s+(-[a-zA-Z]+\s+)*\S+\s+\d+`, LevelHigh, "netcat connection", ""),
		mustRule(`\b(scp|rsync)\s+.*\S+@\S+:`, LevelMedium, "copies files to a remote host", ""),
	},
}

var privilegeEscalation = ruleSet{
	category: CategoryPrivilegeEscalation,
	rules: []rule{
		mustRule(`(^|[;&|\s])sudo\s`, LevelHigh, "runs a command as root", ""),
		mustRule(`(^|[;&|\s])doas\s`, LevelHigh, "runs a command as root", ""),
		mustRule(`(^|[;&|\s])su(\s+-|\s+root|\s*$)`, LevelHigh, "switches to the root user", ""),
		mustRule(`\bchmod\s+([ugoa]*\+s|[2467][0-7]{3}\b)`, LevelHigh, "sets setuid or setgid bits", ""),
		mustRule(`\bchown\s+(-[a-zA-Z]+\s+)*root\b`, LevelMedium, "transfers ownership to root", ""),
		mustRule(`/etc/sudoers`, LevelHigh, "touches sudo configuration", ""),
	},
}

var codeExecution = ruleSet{
	category: CategoryCodeExecution,
	rules: []rule{
		mustRule(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`, LevelCritical,
			"pipes downloaded content into a shell", "download, review, then run"),
		mustRule(`\bbase64\s+(-d|--decode)\b.*\|\s*(ba|z)?sh\b`, LevelCritical, "runs obfuscated shell code", ""),
		mustRule(`\beval\s`, LevelMedium, "evaluates dynamically built code", ""),
		mustRule(`\b(python[23]?|perl|ruby|node)\s+-(c|e)\s`, LevelLow, "inline interpreter code", ""),
	},
}

var systemModification = ruleSet{
	category: CategorySystemModification,
	rules: []rule{
		mustRule(`\bkill\s+-9\s+1\b`, LevelCritical, "kills the init process", ""),
		mustRule(`>{1,2}\s*/etc/`, LevelHigh, "writes system configuration", ""),
		mustRule(`(^|[;&|\s])(shutdown|reboot|halt|poweroff)\b`, LevelHigh, "powers off or restarts the machine", ""),
		mustRule(`\bcrontab\s+-r\b`, LevelHigh, "removes all cron jobs", ""),
		mustRule(`/boot/`, LevelHigh, "touches the boot partition", ""),
		mustRule(`\bsystemctl\s+(stop|disable|mask)\b`, LevelMedium, "stops or disables a system service", ""),
		mustRule(`\b(iptables|ufw|nft)\b`, LevelMedium, "changes firewall rules", ""),
		mustRule(`\blaunchctl\s+(unload|remove|bootout)\b`, LevelMedium, "removes a launch daemon", ""),
	},
}

type sensitivePath struct {
	pattern gitignore.Pattern
	raw     string
	level   Level
}

// Patterns use gitignore syntax and are matched against each path-like token.
// Tokens are matched as directories so "dir/" patterns also hit the directory itself.
var sensitivePaths = compileSensitive(map[string]Level{
	"/etc/shadow":            LevelCritical,
	"/etc/gshadow":           LevelCritical,
	"/etc/passwd":            LevelMedium,
	".ssh/":                  LevelHigh,
	"id_rsa*":                LevelHigh,
	"id_ecdsa*":              LevelHigh,
	"id_ed25519*":            LevelHigh,
	"*.pem":                  LevelHigh,
	"*.key":                  LevelHigh,
	"*.p12":                  LevelHigh,
	"*.kdbx":                 LevelHigh,
	".gnupg/":                LevelHigh,
	"**/.aws/credentials":    LevelHigh,
	"**/.kube/config":        LevelHigh,
	"**/.docker/config.json": LevelMedium,
	".git-credentials":       LevelHigh,
	".netrc":                 LevelHigh,
	".pgpass":                LevelHigh,
	".env":                   LevelMedium,
	".env.*":                 LevelMedium,
})

func compileSensitive(patterns map[string]Level) []sensitivePath {
	out := make([]sensitivePath, 0, len(patterns))
	for p, lvl := range patterns {
		out = append(out, sensitivePath{pattern: gitignore.ParsePattern(p, nil), raw: p, level: lvl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].raw < out[j].raw })
	return out
}

func detectSensitiveFiles(values []string) []Threat {
	var out []Threat
	seen := map[string]bool{}
	for _, v := range values {
		for _, tok := range pathTokens(v) {
			segs := pathSegments(tok)
			if len(segs) == 0 {
				continue
			}
			for _, sp := range sensitivePaths {
				if seen[sp.raw] {
					continue
				}
				if sp.pattern.Match(segs, true) == gitignore.Exclude {
					seen[sp.raw] = true
					out = append(out, Threat{
						Category:       CategorySensitiveFile,
						Level:          sp.level,
						Description:    "accesses a credential or secret file",
						Pattern:        tok,
						Recommendation: "avoid exposing secrets to the model",
					})
				}
			}
		}
	}
	return out
}

func pathTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '"', '\'', '`', ';', '|', '&', '<', '>', '(', ')', '=', ',':
			return true
		}
		return false
	})
}

func pathSegments(tok string) []string {
	parts := strings.Split(tok, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segs = append(segs, p)
	}
	return segs
}
