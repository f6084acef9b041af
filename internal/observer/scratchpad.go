package observer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/telemetry"
)

// ObserverBudget is the hard ≤2ms wall-clock budget for one Observe call,
// spec.md section 4.4.1. Overruns are logged, never thrown.
const ObserverBudget = 2 * time.Millisecond

// RingBufferSize is the capacity of the recent-tool-name ring buffer.
const RingBufferSize = 8

// CoAccessWindow is the step window within which two file accesses count
// as an intra-session co-access pair (spec.md section 4.4.2).
const CoAccessWindow = 5

var configFilePatterns = []string{
	"package.json", "tsconfig", "Cargo.toml", "go.mod", "pyproject.toml",
	"Gemfile", "pom.xml", "build.gradle", "Makefile", "docker-compose",
}

var selfCorrectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I was wrong about .+\. .+ is actually`),
	regexp.MustCompile(`(?i)Wait,? .+`),
	regexp.MustCompile(`(?i)Actually, I need to correct`),
	regexp.MustCompile(`(?i)I made a mistake`),
}

var deadEndPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)this approach (won't|will not|cannot) work`),
	regexp.MustCompile(`(?i)let me try a different approach`),
	regexp.MustCompile(`(?i)not available in this environment`),
	regexp.MustCompile(`(?i)dead end`),
}

// fileArgKeys are the argument keys, in priority order, that name a file
// path for the tool kinds that touch files.
var fileArgKeys = []string{"file_path", "path", "pattern"}

var fileToolNames = map[string]bool{
	"Read": true, "Edit": true, "Write": true, "Grep": true,
}

var errorToolNames = map[string]bool{
	"Bash": true, "Edit": true, "Write": true,
}

// Scratchpad is the per-session in-memory accumulator. All Observe calls
// for one session must come from the same goroutine: there is no internal
// locking, by design (spec.md's "fully synchronous, never blocks" contract).
type Scratchpad struct {
	SessionID string
	ProjectID string

	ringBuffer [RingBufferSize]string
	ringLen    int
	ringHead   int

	fileAccessCounts map[string]int
	fileFirstAccess  map[string]int
	fileLastAccess   map[string]int
	configTouched    map[string]bool
	coAccess         map[[2]string]bool
	grepCounts       map[string]int
	errorFPs         map[string]int

	selfCorrectionCount    int
	lastSelfCorrectionStep int

	currentStep          int
	externalToolCallStep *int
	acuteCandidates      []Candidate
	injectedAcuteCount   int // how many acuteCandidates the bridge has already surfaced
}

// NewScratchpad creates an empty accumulator for one session.
func NewScratchpad(sessionID, projectID string) *Scratchpad {
	return &Scratchpad{
		SessionID:        sessionID,
		ProjectID:        projectID,
		fileAccessCounts: make(map[string]int),
		fileFirstAccess:  make(map[string]int),
		fileLastAccess:   make(map[string]int),
		configTouched:    make(map[string]bool),
		coAccess:         make(map[[2]string]bool),
		grepCounts:       make(map[string]int),
		errorFPs:         make(map[string]int),
	}
}

// Observe dispatches one message, enforcing the hard budget contract: it
// never panics (a handler panic is recovered and discarded) and logs on
// overrun instead of returning an error, since the ingest path has no
// caller able to act on a failure.
func (s *Scratchpad) Observe(msg Message) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("observer: handler panic swallowed", "session_id", s.SessionID, "panic", r)
		}
		if elapsed := time.Since(start); elapsed > ObserverBudget {
			slog.Warn("observer: budget overrun",
				"session_id", s.SessionID, "elapsed_ms", elapsed.Milliseconds(), "budget_ms", ObserverBudget.Milliseconds())
			telemetry.Default().RecordBudgetOverrun(context.Background(), s.SessionID)
		}
	}()

	switch m := msg.(type) {
	case ToolCall:
		s.handleToolCall(m)
	case ToolResult:
		s.handleToolResult(m)
	case Reasoning:
		s.handleReasoning(m)
	case StepComplete:
		s.handleStepComplete(m)
	}
}

func (s *Scratchpad) pushRing(name string) {
	s.ringBuffer[s.ringHead] = name
	s.ringHead = (s.ringHead + 1) % RingBufferSize
	if s.ringLen < RingBufferSize {
		s.ringLen++
	}
}

// RecentTools returns the last n tool names in chronological order (oldest
// first), capped at RingBufferSize.
func (s *Scratchpad) RecentTools(n int) []string {
	if n > s.ringLen {
		n = s.ringLen
	}
	out := make([]string, 0, n)
	for i := n; i > 0; i-- {
		idx := (s.ringHead - i + RingBufferSize) % RingBufferSize
		out = append(out, s.ringBuffer[idx])
	}
	return out
}

func extractFilePath(args map[string]string) string {
	for _, key := range fileArgKeys {
		if v, ok := args[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

func isConfigFile(path string) bool {
	for _, p := range configFilePatterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (s *Scratchpad) handleToolCall(m ToolCall) {
	if (m.Name == "WebFetch" || m.Name == "WebSearch") && s.externalToolCallStep == nil {
		step := m.Step
		s.externalToolCallStep = &step
	}

	if !fileToolNames[m.Name] {
		s.pushRing(m.Name)
		return
	}

	path := extractFilePath(m.Args)
	if path != "" {
		s.fileAccessCounts[path]++
		if _, ok := s.fileFirstAccess[path]; !ok {
			s.fileFirstAccess[path] = m.Step
		}

		if isConfigFile(path) {
			s.configTouched[path] = true
		}

		for other, lastStep := range s.fileLastAccess {
			if other == path {
				continue
			}
			if m.Step-lastStep <= CoAccessWindow && m.Step-lastStep >= 0 {
				s.coAccess[[2]string{path, other}] = true
			}
		}
		s.fileLastAccess[path] = m.Step
	}

	if m.Name == "Grep" {
		if pattern, ok := m.Args["pattern"]; ok && pattern != "" {
			s.grepCounts[pattern]++
		}
	}

	s.pushRing(m.Name)
}

func (s *Scratchpad) handleToolResult(m ToolResult) {
	if !errorToolNames[m.Name] {
		return
	}
	if !strings.Contains(strings.ToLower(m.Result), "error") {
		return
	}
	fp := computeErrorFingerprint(m.Result)
	s.errorFPs[fp]++
}

func (s *Scratchpad) handleReasoning(m Reasoning) {
	for _, re := range selfCorrectionPatterns {
		if loc := re.FindStringIndex(m.Text); loc != nil {
			s.selfCorrectionCount++
			s.lastSelfCorrectionStep = m.Step
			frag := m.Text[loc[0]:loc[1]]
			s.acuteCandidates = append(s.acuteCandidates, Candidate{
				SignalKind:      models.SignalSelfCorrection,
				ProposedType:    models.MemoryKindGotcha,
				Confidence:      0.8,
				Priority:        0.9,
				OriginatingStep: m.Step,
				Content:         sliceUpTo(m.Text, 200),
				MatchedFragment: frag,
			})
			break
		}
	}
	for _, re := range deadEndPatterns {
		if re.MatchString(m.Text) {
			s.acuteCandidates = append(s.acuteCandidates, Candidate{
				SignalKind:      models.SignalBacktrack,
				ProposedType:    models.MemoryKindDeadEnd,
				Confidence:      0.7,
				Priority:        0.68,
				OriginatingStep: m.Step,
				Content:         sliceUpTo(m.Text, 200),
			})
			break
		}
	}
}

func (s *Scratchpad) handleStepComplete(m StepComplete) {
	s.currentStep = m.Step
}

// NewAcuteCandidates returns the acute candidates pushed since the last call
// to this method, and marks them consumed — the Injection Bridge's
// scratchpad-reflection trigger (spec.md section 4.6) calls this once per
// step.
func (s *Scratchpad) NewAcuteCandidates() []Candidate {
	if s.injectedAcuteCount >= len(s.acuteCandidates) {
		return nil
	}
	fresh := s.acuteCandidates[s.injectedAcuteCount:]
	out := make([]Candidate, len(fresh))
	copy(out, fresh)
	s.injectedAcuteCount = len(s.acuteCandidates)
	return out
}

func sliceUpTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
