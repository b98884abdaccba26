// Package format renders SpamWatch entities for the console.
package format

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/s0up4200/spamwatch/spamwatch"
)

const dateLayout = "2006-01-02 15:04"

// styles used by the formatter
type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	danger  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086")),
		danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
	}
}

// ConsoleFormatter provides console output formatting for bans and tokens
type ConsoleFormatter struct {
	color  bool
	styles styles
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(color bool) *ConsoleFormatter {
	return &ConsoleFormatter{
		color:  color,
		styles: defaultStyles(),
	}
}

// NewConsoleFormatterFor enables color only when w is a terminal
func NewConsoleFormatterFor(w io.Writer, color bool) *ConsoleFormatter {
	return NewConsoleFormatter(color && IsTerminal(w))
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (f *ConsoleFormatter) paint(style lipgloss.Style, s string) string {
	if !f.color {
		return s
	}
	return style.Render(s)
}

// tree prefixes for item i of n
func branch(isLast bool) (prefix, indent string) {
	if isLast {
		return "╰── ", "    "
	}
	return "├── ", "│   "
}

// Plural appends an "s" to word unless n is 1
func Plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// FormatBanList formats a list of bans for console display
func (f *ConsoleFormatter) FormatBanList(bans []spamwatch.Ban) string {
	if len(bans) == 0 {
		return "No bans found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\n\n", f.paint(f.styles.header, fmt.Sprintf("%s (%d):", Plural(len(bans), "Ban"), len(bans))))

	for i, ban := range bans {
		isLast := i == len(bans)-1
		f.writeBan(&sb, ban, isLast)
		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatBan formats a single ban
func (f *ConsoleFormatter) FormatBan(ban *spamwatch.Ban) string {
	var sb strings.Builder
	sb.WriteString("\n")
	f.writeBan(&sb, *ban, true)
	return sb.String()
}

func (f *ConsoleFormatter) writeBan(sb *strings.Builder, ban spamwatch.Ban, isLast bool) {
	prefix, indent := branch(isLast)

	fmt.Fprintf(sb, "%s%s %s\n", prefix,
		f.paint(f.styles.danger, fmt.Sprintf("%d", ban.UserID)),
		ban.Reason)

	if ban.Message != "" {
		fmt.Fprintf(sb, "%s%s %s\n", indent, f.paint(f.styles.label, "Message:"), ban.Message)
	}

	var parts []string
	if !ban.Date.IsZero() {
		parts = append(parts, fmt.Sprintf("Banned: %s", ban.Date.Format(dateLayout)))
	}
	if ban.Admin != 0 {
		parts = append(parts, fmt.Sprintf("Admin: %d", ban.Admin))
	}
	if len(parts) > 0 {
		fmt.Fprintf(sb, "%s%s\n", indent, f.paint(f.styles.muted, strings.Join(parts, " | ")))
	}
}

// FormatTokenList formats a list of tokens. Secrets are masked.
func (f *ConsoleFormatter) FormatTokenList(tokens []spamwatch.Token) string {
	if len(tokens) == 0 {
		return "No tokens found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\n\n", f.paint(f.styles.header, fmt.Sprintf("%s (%d):", Plural(len(tokens), "Token"), len(tokens))))

	for i, tok := range tokens {
		isLast := i == len(tokens)-1
		f.writeToken(&sb, tok, isLast, false)
		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatToken formats a single token. The secret is shown only when showSecret is set.
func (f *ConsoleFormatter) FormatToken(tok *spamwatch.Token, showSecret bool) string {
	var sb strings.Builder
	sb.WriteString("\n")
	f.writeToken(&sb, *tok, true, showSecret)
	return sb.String()
}

func (f *ConsoleFormatter) writeToken(sb *strings.Builder, tok spamwatch.Token, isLast, showSecret bool) {
	prefix, indent := branch(isLast)

	status := f.paint(f.styles.success, "active")
	if tok.Retired {
		status = f.paint(f.styles.muted, "retired")
	}
	fmt.Fprintf(sb, "%sToken #%d %s (%s)\n", prefix, tok.ID, f.paint(f.styles.label, tok.Permission.String()), status)

	if tok.UserID != 0 {
		fmt.Fprintf(sb, "%sOwner: %d\n", indent, tok.UserID)
	}
	if tok.APIToken != "" {
		secret := maskSecret(tok.APIToken)
		if showSecret {
			secret = tok.APIToken
		}
		fmt.Fprintf(sb, "%sSecret: %s\n", indent, secret)
	}
}

// maskSecret keeps the first and last 4 characters
func maskSecret(s string) string {
	if len(s) < 12 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// FormatStats formats the ban list statistics
func (f *ConsoleFormatter) FormatStats(stats *spamwatch.Stats) string {
	return fmt.Sprintf("%s %d\n", f.paint(f.styles.label, "Total bans:"), stats.TotalBanCount)
}

// FormatVersion formats the server version and warns about unsupported servers
func (f *ConsoleFormatter) FormatVersion(v *spamwatch.Version) string {
	out := fmt.Sprintf("%s %s\n", f.paint(f.styles.label, "SpamWatch API:"), v.String())
	if !v.Supported() {
		out += f.paint(f.styles.warning,
			fmt.Sprintf("Warning: server is older than %s; some calls may fail", spamwatch.MinimumAPIVersion)) + "\n"
	}
	return out
}

// FormatCheckResult formats the outcome of a bulk user check
func (f *ConsoleFormatter) FormatCheckResult(result spamwatch.CheckResult) string {
	var sb strings.Builder

	banned := make([]spamwatch.Ban, 0, len(result.Banned))
	for _, ban := range result.Banned {
		banned = append(banned, *ban)
	}
	slices.SortFunc(banned, func(a, b spamwatch.Ban) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})

	if len(banned) > 0 {
		fmt.Fprintf(&sb, "\n%s\n\n", f.paint(f.styles.danger, fmt.Sprintf("Banned (%d):", len(banned))))
		for i, ban := range banned {
			f.writeBan(&sb, ban, i == len(banned)-1)
		}
	}

	if len(result.Clean) > 0 {
		ids := make([]string, len(result.Clean))
		for i, id := range result.Clean {
			ids[i] = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(&sb, "\n%s %s\n", f.paint(f.styles.success, fmt.Sprintf("Not banned (%d):", len(ids))), strings.Join(ids, ", "))
	}

	if len(result.Failed) > 0 {
		ids := slices.Sorted(maps.Keys(result.Failed))
		fmt.Fprintf(&sb, "\n%s\n", f.paint(f.styles.warning, fmt.Sprintf("Failed (%d):", len(ids))))
		for i, id := range ids {
			prefix, _ := branch(i == len(ids)-1)
			fmt.Fprintf(&sb, "%s%d: %v\n", prefix, id, result.Failed[id])
		}
	}

	if sb.Len() == 0 {
		return "No users checked"
	}
	return sb.String()
}

// FormatDeleteResult formats the outcome of a batch unban
func (f *ConsoleFormatter) FormatDeleteResult(result spamwatch.BatchDeleteResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Unbanned %d of %d %s\n", len(result.Successful), result.Requested, Plural(result.Requested, "user"))
	for i, failure := range result.Failed {
		prefix, _ := branch(i == len(result.Failed)-1)
		fmt.Fprintf(&sb, "%s%s\n", prefix, f.paint(f.styles.warning, failure.Error()))
	}
	return sb.String()
}
