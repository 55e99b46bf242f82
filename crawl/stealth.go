package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fwojciec/seocrawl"
	"golang.org/x/text/language"
)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// StealthManager installs network identity and automation-signal overrides
// on a Renderer for the lifetime of one run. Every step is best-effort:
// failures are logged and never returned.
//
// Reapply may run as a background task concurrently with Begin or End.
type StealthManager struct {
	renderer seocrawl.Renderer
	logf     LogFunc

	mu       sync.Mutex
	script   string
	attached bool
	scriptID string
}

// NewStealthManager creates a StealthManager for r. logf may be nil.
func NewStealthManager(r seocrawl.Renderer, logf LogFunc) *StealthManager {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &StealthManager{renderer: r, logf: logf}
}

// Begin applies spec to the renderer. It does nothing if spec requests no
// override.
func (m *StealthManager) Begin(ctx context.Context, spec seocrawl.StealthSpec) {
	m.mu.Lock()
	m.script = NavigatorScript(spec)
	m.mu.Unlock()
	if !spec.Enabled() {
		return
	}

	if !m.attached {
		if err := m.renderer.Attach(ctx); err != nil {
			m.logf("stealth: attach: %v", err)
		} else {
			m.attached = true
		}
	}

	identity := spec.Identity()
	if identity != (seocrawl.NetworkIdentity{}) {
		if err := m.renderer.SetNetworkIdentity(ctx, identity); err != nil {
			m.logf("stealth: network identity: %v", err)
		}
	}

	if script := m.Script(); script != "" && m.scriptID == "" {
		id, err := m.renderer.AddPreDocumentScript(ctx, script)
		if err != nil {
			m.logf("stealth: pre-document script: %v", err)
		} else {
			m.scriptID = id
		}
	}

	m.Reapply(ctx)
}

// Reapply re-runs the navigator overrides against the loaded document.
// Pages that refused the pre-document script still get the overrides,
// though scripts that already ran may have observed the originals.
func (m *StealthManager) Reapply(ctx context.Context) {
	script := m.Script()
	if script == "" {
		return
	}
	if _, err := m.renderer.RunScript(ctx, script); err != nil {
		m.logf("stealth: reapply: %v", err)
	}
}

// End removes the pre-document script and detaches the control channel.
// End is idempotent and safe after a partially failed Begin.
func (m *StealthManager) End(ctx context.Context) {
	if m.scriptID != "" {
		if err := m.renderer.RemovePreDocumentScript(ctx, m.scriptID); err != nil {
			m.logf("stealth: remove pre-document script: %v", err)
		}
		m.scriptID = ""
	}
	if m.attached {
		if err := m.renderer.Detach(ctx); err != nil {
			m.logf("stealth: detach: %v", err)
		}
		m.attached = false
	}
	m.mu.Lock()
	m.script = ""
	m.mu.Unlock()
}

// Script returns the navigator override script of the current run.
func (m *StealthManager) Script() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.script
}

// NavigatorScript returns a script overriding the navigator properties
// named by spec, or an empty string if spec overrides none of them.
func NavigatorScript(spec seocrawl.StealthSpec) string {
	var b strings.Builder
	if spec.SuppressAutomationSignal {
		b.WriteString("  define('webdriver', false);\n")
	}
	if spec.UserAgent != "" {
		fmt.Fprintf(&b, "  define('userAgent', %s);\n", jsLiteral(spec.UserAgent))
	}
	if spec.Platform != "" {
		fmt.Fprintf(&b, "  define('platform', %s);\n", jsLiteral(spec.Platform))
	}
	if langs := AcceptLanguages(spec.AcceptLanguage); len(langs) > 0 {
		fmt.Fprintf(&b, "  define('language', %s);\n", jsLiteral(langs[0]))
		fmt.Fprintf(&b, "  define('languages', Object.freeze(%s));\n", jsLiteral(langs))
	}
	if b.Len() == 0 {
		return ""
	}
	return "(() => {\n" +
		"  const define = (name, value) => {\n" +
		"    try {\n" +
		"      Object.defineProperty(Navigator.prototype, name, { get: () => value, configurable: true });\n" +
		"    } catch (e) {}\n" +
		"  };\n" +
		b.String() +
		"})()"
}

// AcceptLanguages returns the language tags of an Accept-Language header
// ordered by quality, as navigator.languages reports them.
func AcceptLanguages(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		// Keep the header's first entry verbatim rather than dropping it.
		first := strings.TrimSpace(strings.SplitN(strings.SplitN(header, ",", 2)[0], ";", 2)[0])
		if first == "" {
			return nil
		}
		return []string{first}
	}
	langs := make([]string, 0, len(tags))
	for _, tag := range tags {
		langs = append(langs, tag.String())
	}
	return langs
}

func jsLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
