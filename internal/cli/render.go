package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/mailkeeper/internal/models"
)

var (
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
)

// stateLabel returns a colored, fixed-width account state.
func stateLabel(s models.State) string {
	label := fmt.Sprintf("%-12s", s)
	switch s {
	case models.StateActive:
		return successStyle.Render(label)
	case models.StateConfiguring:
		return warnStyle.Render(label)
	case models.StateError:
		return errStyle.Render(label)
	default:
		return mutedStyle.Render(label)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func server(a *models.Account) string {
	if a.Host == "" {
		return "-"
	}
	proto := a.Protocol
	if proto == "" {
		proto = models.ProtocolSMTP
	}
	return fmt.Sprintf("%s %s:%d", strings.ToLower(proto), a.Host, a.Port)
}

// renderAccount writes one indented account line plus the last error, if
// any. needsAuth marks OAuth2 accounts that must be re-authorized.
func renderAccount(w io.Writer, a *models.Account, needsAuth bool) {
	line := fmt.Sprintf("  %-8s %s %-28s %s", a.Kind, stateLabel(a.State()), server(a), orDash(a.AuthBk))
	if needsAuth {
		line += " " + warnStyle.Render("(authorization required)")
	}
	fmt.Fprintln(w, line)

	if a.LastError != "" {
		at := ""
		if a.LastErrorAt != nil {
			at = a.LastErrorAt.Local().Format("2006-01-02 15:04") + " "
		}
		fmt.Fprintf(w, "           %s\n", errStyle.Render(fmt.Sprintf("%s%s (%d errors)", at, a.LastError, a.Errors)))
	}
}

func renderIdentityHeader(w io.Writer, identity *models.Identity) {
	fmt.Fprintf(w, "%s %s %s\n", boldStyle.Render(identity.Email), mutedStyle.Render(identity.Name), mutedStyle.Render(fmt.Sprintf("#%d", identity.ID)))
}
