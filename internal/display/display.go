package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/streamscribe/internal/protocol"
	"github.com/leonardotrapani/streamscribe/internal/session"
	"github.com/muesli/termenv"
)

// Palette shared by the transcript printer and the configure wizard
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#22C55E")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorText      = lipgloss.Color("#F8FAFC")
	ColorMuted     = lipgloss.Color("#94A3B8")
	ColorSubtle    = lipgloss.Color("#64748B")
)

// Printer writes inbound service messages and the final transcript to w.
// It is safe for concurrent use.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	showRaw bool

	raw        lipgloss.Style
	fragment   lipgloss.Style
	malformed  lipgloss.Style
	finished   lipgloss.Style
	header     lipgloss.Style
	warning    lipgloss.Style
	transcript lipgloss.Style
}

var _ session.Observer = (*Printer)(nil)

// NewPrinter builds a printer. color is "auto", "always" or "never".
func NewPrinter(w io.Writer, color string, showRaw bool) *Printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(Profile(w, color))

	return &Printer{
		w:          w,
		showRaw:    showRaw,
		raw:        r.NewStyle().Foreground(ColorMuted),
		fragment:   r.NewStyle().Foreground(ColorSuccess).Bold(true),
		malformed:  r.NewStyle().Foreground(ColorError).Bold(true),
		finished:   r.NewStyle().Foreground(ColorPrimary).Bold(true),
		header:     r.NewStyle().Foreground(ColorPrimary).Bold(true),
		warning:    r.NewStyle().Foreground(ColorWarning),
		transcript: r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorMuted).Padding(0, 1),
	}
}

// Profile resolves a display.color setting to a terminal color profile.
func Profile(w io.Writer, color string) termenv.Profile {
	switch color {
	case "never":
		return termenv.Ascii
	case "always":
		return termenv.ANSI256
	default:
		return termenv.NewOutput(w).EnvColorProfile()
	}
}

func (p *Printer) MessageReceived(raw []byte, msg *protocol.Inbound) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg == nil {
		fmt.Fprintln(p.w, p.malformed.Render("malformed message: ")+string(raw))
		return
	}
	if p.showRaw {
		fmt.Fprintln(p.w, p.raw.Render(string(raw)))
	}
	if msg.HasTranscript && msg.Transcript != "" {
		fmt.Fprintln(p.w, p.fragment.Render("» "+msg.Transcript))
	}
	if msg.Finished {
		fmt.Fprintln(p.w, p.finished.Render("service finished"))
	}
}

// Summary prints the outcome and the accumulated transcript of a session.
func (p *Printer) Summary(res *session.Result) {
	if res == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	outcome := string(res.Outcome)
	switch res.Outcome {
	case session.OutcomeDrainTimeout:
		outcome = p.warning.Render(outcome + " (no completion from the service)")
	case session.OutcomeAborted:
		outcome = p.malformed.Render(outcome)
	}

	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s %s, %d frames in %s\n",
		p.header.Render("Session:"), outcome, res.FramesSent, res.Duration.Round(time.Millisecond))

	text := res.Text()
	if text == "" {
		fmt.Fprintln(p.w, p.raw.Render("(empty transcript)"))
		return
	}
	fmt.Fprintln(p.w, p.transcript.Render(text))
}
