package models

import "fmt"

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. Both the store and output packages use this
// interface to avoid an import cycle.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// InputError wraps a malformed query, unknown id, or invalid parameter.
// Surfaced directly to the caller.
type InputError struct {
	Reason string
	Field  string
}

func (e *InputError) Error() string      { return fmt.Sprintf("input error: %s", e.Reason) }
func (e *InputError) ErrorCode() string  { return "INPUT_ERROR" }
func (e *InputError) Context() map[string]string {
	return map[string]string{"field": e.Field}
}
func (e *InputError) SuggestedAction() string { return "check request parameters and retry" }

// StorageTransientError wraps a backend failure expected to clear on retry
// (lock contention, a network hiccup to a remote store backend).
type StorageTransientError struct {
	Op  string
	Err error
}

func (e *StorageTransientError) Error() string {
	return fmt.Sprintf("transient storage error during %s: %v", e.Op, e.Err)
}
func (e *StorageTransientError) Unwrap() error     { return e.Err }
func (e *StorageTransientError) ErrorCode() string { return "STORAGE_TRANSIENT" }
func (e *StorageTransientError) Context() map[string]string {
	return map[string]string{"op": e.Op}
}
func (e *StorageTransientError) SuggestedAction() string {
	return "retry with exponential backoff; after 3 attempts treat as fatal"
}

// StorageFatalError wraps corrupt state or a schema mismatch. Never retried.
type StorageFatalError struct {
	Op  string
	Err error
}

func (e *StorageFatalError) Error() string {
	return fmt.Sprintf("fatal storage error during %s: %v", e.Op, e.Err)
}
func (e *StorageFatalError) Unwrap() error     { return e.Err }
func (e *StorageFatalError) ErrorCode() string { return "STORAGE_FATAL" }
func (e *StorageFatalError) Context() map[string]string {
	return map[string]string{"op": e.Op}
}
func (e *StorageFatalError) SuggestedAction() string {
	return "run 'memengine db migrate' or restore from backup"
}

// ProviderUnavailableError wraps an embedding or rerank provider that is
// offline or timed out. Per the error taxonomy this is always soft-degraded
// by the caller (passthrough rerank, fallback embedder) and never propagated
// to a user-facing surface; the type exists so background code can log it
// uniformly before degrading.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}
func (e *ProviderUnavailableError) Unwrap() error     { return e.Err }
func (e *ProviderUnavailableError) ErrorCode() string { return "PROVIDER_UNAVAILABLE" }
func (e *ProviderUnavailableError) Context() map[string]string {
	return map[string]string{"provider": e.Provider}
}
func (e *ProviderUnavailableError) SuggestedAction() string {
	return "degrading to fallback provider"
}

// BudgetOverrunError records an observer event, injection bridge, or finalize
// call that exceeded its hard real-time budget. Logged, never thrown to the
// caller.
type BudgetOverrunError struct {
	Op         string
	BudgetMS   float64
	ObservedMS float64
}

func (e *BudgetOverrunError) Error() string {
	return fmt.Sprintf("%s exceeded budget: %.3fms > %.3fms", e.Op, e.ObservedMS, e.BudgetMS)
}
func (e *BudgetOverrunError) ErrorCode() string { return "BUDGET_OVERRUN" }
func (e *BudgetOverrunError) Context() map[string]string {
	return map[string]string{
		"op":          e.Op,
		"budget_ms":   fmt.Sprintf("%.3f", e.BudgetMS),
		"observed_ms": fmt.Sprintf("%.3f", e.ObservedMS),
	}
}
func (e *BudgetOverrunError) SuggestedAction() string { return "none; logged for observability" }
