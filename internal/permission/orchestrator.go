package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/telemetry"
	"go.uber.org/zap"
)

const defaultHistorySize = 20

// Source records how a Verdict was reached.
type Source string

const (
	SourceCached Source = "cached"
	SourceJudge  Source = "judge"
	SourcePrompt Source = "prompt"
	SourceFault  Source = "fault"
)

// Config is the policy the Orchestrator applies.
type Config struct {
	Mode                 Mode
	AutoApproveReadWrite bool
	RememberDecisions    bool
	RememberScope        Scope
	// HistorySize bounds the per-session window used for repetition detection.
	HistorySize int
}

// Verdict is the answer to "may this call run now?".
type Verdict struct {
	Decision   Decision
	Remember   bool
	Source     Source
	Inspection Inspection
	// Err is set when Source is SourceFault and wraps ErrInternal.
	Err error
}

// Allowed reports whether the call may run.
func (v Verdict) Allowed() bool {
	return v.Decision == Allow
}

// Orchestrator coordinates the inspector, the policy table, the decision
// store and the human prompt. It is the only writer to its store.
type Orchestrator struct {
	cfg       Config
	store     Store
	inspector inspector
	prompter  Prompter
	emitter   telemetry.Emitter
	logger    *zap.Logger
	decide    func(risk.Class, Inspection, Mode, bool) Decision

	histMu  sync.Mutex
	history map[string][]string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPrompter sets the human prompt. Without one, calls that need a human are denied.
func WithPrompter(p Prompter) Option {
	return func(o *Orchestrator) { o.prompter = p }
}

func WithEmitter(e telemetry.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an Orchestrator. store and insp are required.
func NewOrchestrator(cfg Config, store Store, insp *Inspector, opts ...Option) *Orchestrator {
	if store == nil {
		panic("store is required")
	}
	if insp == nil {
		panic("inspector is required")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.RememberScope == "" {
		cfg.RememberScope = ScopeTool
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     store,
		inspector: insp,
		emitter:   telemetry.Nop{},
		logger:    zap.NewNop(),
		decide:    Decide,
		history:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Key returns the store key a decision about call is remembered under.
func (o *Orchestrator) Key(call provider.ToolCall) string {
	if o.cfg.RememberScope == ScopeArguments {
		return call.Name + "#" + Fingerprint(call)
	}
	return call.Name
}

// Request decides whether call may run in session sessionID.
//
// A remembered decision short-circuits the policy. Otherwise the call is
// inspected and judged, and a human is asked when the policy says Ask. Any
// fault inside inspection or judgement yields Deny. The only error returned
// is ctx's, when the request is cancelled; the store is then left untouched.
func (o *Orchestrator) Request(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{Decision: Deny}, err
	}

	recent := o.recordCall(sessionID, call)
	key := o.Key(call)

	if d, ok := o.store.Get(sessionID, key); ok && d != Ask {
		// Inspection here is for telemetry only.
		in, _ := o.evaluate(call, recent)
		v := Verdict{Decision: d, Source: SourceCached, Inspection: in}
		o.emit(ctx, call, class, sessionID, v)
		return v, nil
	}

	in, candidate, err := o.judge(call, class, recent)
	if err != nil {
		o.logger.Error("permission check failed, denying",
			zap.String("tool", call.Name),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		v := Verdict{Decision: Deny, Source: SourceFault, Inspection: in, Err: err}
		o.emit(ctx, call, class, sessionID, v)
		return v, nil
	}

	v := Verdict{Decision: candidate, Source: SourceJudge, Inspection: in}
	if candidate == Ask {
		v, err = o.ask(ctx, call, class, sessionID, in)
		if err != nil {
			return Verdict{Decision: Deny}, err
		}
	}

	if v.Remember && o.cfg.RememberDecisions {
		if err := o.store.Save(sessionID, key, v.Decision); err != nil {
			o.logger.Warn("failed to remember decision", zap.String("tool", call.Name), zap.Error(err))
		}
	}

	o.emit(ctx, call, class, sessionID, v)
	return v, nil
}

func (o *Orchestrator) ask(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string, in Inspection) (Verdict, error) {
	if o.prompter == nil {
		return Verdict{Decision: Deny, Source: SourceJudge, Inspection: in}, nil
	}

	d, remember, err := o.prompter.Prompt(ctx, call, class, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Verdict{}, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Verdict{}, err
		}
		o.logger.Error("permission prompt failed, denying",
			zap.String("tool", call.Name),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return Verdict{
			Decision:   Deny,
			Source:     SourceFault,
			Inspection: in,
			Err:        fmt.Errorf("%w: prompt: %w", ErrInternal, err),
		}, nil
	}
	if d != Allow && d != Deny {
		d = Deny
		remember = false
	}
	return Verdict{Decision: d, Remember: remember, Source: SourcePrompt, Inspection: in}, nil
}

// judge runs the inspector and the policy table, converting panics into
// ErrInternal.
func (o *Orchestrator) judge(call provider.ToolCall, class risk.Class, recent []string) (in Inspection, d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = Deny
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	if !class.Valid() {
		return Inspection{}, Deny, fmt.Errorf("%w: invalid risk class %d", ErrInternal, int(class))
	}

	in, err = o.evaluate(call, recent)
	if err != nil {
		return in, Deny, err
	}
	d = o.decide(class, in, o.cfg.Mode, o.cfg.AutoApproveReadWrite)
	if d != Allow && d != Deny && d != Ask {
		return in, Deny, fmt.Errorf("%w: judge returned %v", ErrInternal, d)
	}
	return in, d, nil
}

func (o *Orchestrator) evaluate(call provider.ToolCall, recent []string) (in Inspection, err error) {
	defer func() {
		if r := recover(); r != nil {
			in = Inspection{}
			err = fmt.Errorf("%w: inspector: %v", ErrInternal, r)
		}
	}()
	return o.inspector.Inspect(call, recent), nil
}

// recordCall appends the call's fingerprint to the session window and
// returns the window as it was before.
func (o *Orchestrator) recordCall(sessionID string, call provider.ToolCall) []string {
	fp := Fingerprint(call)

	o.histMu.Lock()
	defer o.histMu.Unlock()
	prev := o.history[sessionID]
	recent := make([]string, len(prev))
	copy(recent, prev)

	next := append(prev, fp)
	if len(next) > o.cfg.HistorySize {
		next = next[len(next)-o.cfg.HistorySize:]
	}
	o.history[sessionID] = next
	return recent
}

// Remembered returns the session's remembered decisions by store key.
func (o *Orchestrator) Remembered(sessionID string) map[string]Decision {
	return o.store.GetAll(sessionID)
}

// Revoke forgets the decision remembered under key. It reports whether one existed.
func (o *Orchestrator) Revoke(sessionID, key string) bool {
	if _, ok := o.store.Get(sessionID, key); !ok {
		return false
	}
	o.store.Revoke(sessionID, key)
	return true
}

// Forget drops the session's remembered decisions and call history.
func (o *Orchestrator) Forget(sessionID string) {
	o.store.Clear(sessionID)
	o.histMu.Lock()
	delete(o.history, sessionID)
	o.histMu.Unlock()
}

func (o *Orchestrator) emit(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string, v Verdict) {
	telemetry.Safe(ctx, o.emitter, telemetry.EventPermissionDecision, telemetry.Attributes{
		"tool":         call.Name,
		"session_id":   sessionID,
		"risk":         class.String(),
		"threat_level": v.Inspection.Level.String(),
		"decision":     v.Decision.String(),
		"source":       string(v.Source),
	})
}
