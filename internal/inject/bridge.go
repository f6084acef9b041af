// Package inject implements the Agent Injection Bridge (C6): the
// between-step decider that the agent runtime invokes with recent tool-call
// context, returning either no injection or a short system-message addition,
// per spec.md section 4.6.
package inject

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/store"
	"github.com/dotcommander/memengine/internal/telemetry"
)

// WarmupSteps is the minimum step number before the bridge fires; below it
// the agent runtime never calls Evaluate in the first place, but Evaluate
// enforces it too, so a misconfigured caller degrades safely.
const WarmupSteps = 5

// SoftBudget and HardBudget bound the bridge's between-step suspension,
// spec.md section 5. Past HardBudget, Evaluate returns no injection rather
// than block the next step.
const (
	SoftBudget = 50 * time.Millisecond
	HardBudget = 200 * time.Millisecond
)

// Injection kinds, one per trigger.
const (
	KindGotchaInjection      = "gotcha_injection"
	KindScratchpadReflection = "scratchpad_reflection"
	KindSearchShortCircuit   = "search_short_circuit"
)

// ToolCallRecord is the bridge's view of one recent tool call: just enough
// to drive the three triggers, independent of the Observer's own Message
// union so the agent runtime can hand the bridge a window without routing
// it through the Scratchpad first.
type ToolCallRecord struct {
	Name string
	Args map[string]string
	Step int
}

// Injection is the bridge's non-empty result: a short block of text and the
// trigger that produced it.
type Injection struct {
	Content string
	Kind    string
}

var fileToolNames = map[string]bool{"Read": true, "Edit": true}
var searchToolNames = map[string]bool{"Grep": true, "Glob": true}

// gotchaKinds are the memory kinds Trigger 1 surfaces.
var gotchaKinds = []models.MemoryKind{
	models.MemoryKindGotcha,
	models.MemoryKindErrorPattern,
	models.MemoryKindDeadEnd,
}

const gotchaMinConfidence = 0.65
const gotchaLimit = 4

// Bridge holds the per-session state the bridge needs across Evaluate
// calls: the set of memory ids already injected this session, and the
// Scratchpad it reads acute candidates from for Trigger 2.
type Bridge struct {
	DB         *sql.DB
	ProjectID  string
	Scratchpad *observer.Scratchpad

	injected map[string]bool
}

// NewBridge wires a bridge to one session's store and scratchpad.
func NewBridge(db *sql.DB, projectID string, sp *observer.Scratchpad) *Bridge {
	return &Bridge{
		DB:         db,
		ProjectID:  projectID,
		Scratchpad: sp,
		injected:   make(map[string]bool),
	}
}

// Evaluate runs the three triggers in order, returning the first hit. A
// canceled ctx, or one that blows the hard budget before a trigger
// completes, returns (nil, nil) rather than an error: the guiding principle
// is the bridge must never stall the agent.
func (b *Bridge) Evaluate(ctx context.Context, step int, window []ToolCallRecord) (*Injection, error) {
	if step < WarmupSteps {
		return nil, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, HardBudget)
	defer cancel()

	type outcome struct {
		inj *Injection
		err error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		inj, err := b.evaluateTriggers(window)
		resultCh <- outcome{inj, err}
	}()

	select {
	case out := <-resultCh:
		telemetry.Default().RecordBridgeLatency(context.Background(), time.Since(start).Seconds(), out.inj != nil)
		return out.inj, out.err
	case <-ctx.Done():
		telemetry.Default().RecordBridgeLatency(context.Background(), time.Since(start).Seconds(), false)
		return nil, nil
	}
}

func (b *Bridge) evaluateTriggers(window []ToolCallRecord) (*Injection, error) {
	if inj, err := b.triggerGotchaInjection(window); inj != nil || err != nil {
		return inj, err
	}
	if inj := b.triggerScratchpadReflection(); inj != nil {
		return inj, nil
	}
	if inj, err := b.triggerSearchShortCircuit(window); inj != nil || err != nil {
		return inj, err
	}
	return nil, nil
}

// triggerGotchaInjection is Trigger 1: file paths from Read/Edit calls in
// the window, matched against gotcha/error_pattern/dead_end memories with
// confidence >= 0.65, excluding already-injected ids.
func (b *Bridge) triggerGotchaInjection(window []ToolCallRecord) (*Injection, error) {
	files := recentFiles(window)
	if len(files) == 0 {
		return nil, nil
	}

	mems, err := store.SearchByKindAndFiles(b.DB, b.ProjectID, gotchaKinds, files, gotchaMinConfidence, gotchaLimit*3)
	if err != nil {
		return nil, err
	}

	var fresh []*models.Memory
	for _, m := range mems {
		if b.injected[m.ID] {
			continue
		}
		fresh = append(fresh, m)
		if len(fresh) >= gotchaLimit {
			break
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Known gotchas for files you just touched:\n")
	for _, m := range fresh {
		fmt.Fprintf(&sb, "- [%s] %s\n", m.Kind, truncate(m.Content, 240))
	}
	for _, m := range fresh {
		b.injected[m.ID] = true
	}
	return &Injection{Content: strings.TrimRight(sb.String(), "\n"), Kind: KindGotchaInjection}, nil
}

// triggerScratchpadReflection is Trigger 2: acute candidates the Observer
// has pushed since the bridge last consumed them.
func (b *Bridge) triggerScratchpadReflection() *Injection {
	if b.Scratchpad == nil {
		return nil
	}
	fresh := b.Scratchpad.NewAcuteCandidates()
	if len(fresh) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("You recently noted:\n")
	for _, c := range fresh {
		fmt.Fprintf(&sb, "- %s\n", truncate(c.Content, 240))
	}
	return &Injection{Content: strings.TrimRight(sb.String(), "\n"), Kind: KindScratchpadReflection}
}

// triggerSearchShortCircuit is Trigger 3: the last 3 Grep/Glob patterns,
// matched against an exact tag-or-content hit.
func (b *Bridge) triggerSearchShortCircuit(window []ToolCallRecord) (*Injection, error) {
	patterns := recentSearchPatterns(window, 3)
	for _, p := range patterns {
		m, err := store.SearchByExactTagOrContent(b.DB, b.ProjectID, p)
		if err != nil {
			return nil, err
		}
		if m == nil || b.injected[m.ID] {
			continue
		}
		b.injected[m.ID] = true
		return &Injection{
			Content: fmt.Sprintf("Already answered: %s", truncate(m.Content, 200)),
			Kind:    KindSearchShortCircuit,
		}, nil
	}
	return nil, nil
}

func recentFiles(window []ToolCallRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tc := range window {
		if !fileToolNames[tc.Name] {
			continue
		}
		path := tc.Args["file_path"]
		if path == "" {
			path = tc.Args["path"]
		}
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
	}
	return out
}

func recentSearchPatterns(window []ToolCallRecord, limit int) []string {
	var out []string
	for i := len(window) - 1; i >= 0 && len(out) < limit; i-- {
		tc := window[i]
		if !searchToolNames[tc.Name] {
			continue
		}
		p := tc.Args["pattern"]
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
