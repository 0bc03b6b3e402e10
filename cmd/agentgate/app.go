package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/logging"
	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/session"
	"github.com/Cyclone1070/agentgate/internal/telemetry"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/file"
	"github.com/Cyclone1070/agentgate/internal/tool/shell"
	"github.com/Cyclone1070/agentgate/internal/tool/todo"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
	"github.com/Cyclone1070/agentgate/internal/ui"
	"github.com/Cyclone1070/agentgate/internal/workflow"
	"github.com/Cyclone1070/agentgate/internal/workflow/loop"
)

const defaultSystemPrompt = `You are a coding agent working in the workspace %s.
Use the tools to inspect and change files and to run commands. Paths are
relative to the workspace root. Some tool calls need the user's approval and
may be denied; when that happens, explain what you wanted to do instead of
retrying the same call.`

// errPersist marks a failure to save a turn, as opposed to a failed turn.
var errPersist = errors.New("persist session")

// app is everything one CLI invocation needs to run agent turns.
type app struct {
	cfg     *config.Config
	root    string
	logger  *zap.Logger
	store   session.Store
	console *ui.Console
	lines   *ui.LineReader

	provider   provider.Provider
	registry   *tool.Registry
	classifier *risk.Classifier
	gate       *permission.Orchestrator
	emitter    telemetry.Emitter

	shutdown telemetry.Shutdown
}

// openStore opens the session database named by cfg.
func openStore(ctx context.Context, cfg *config.Config) (*session.SQLiteStore, error) {
	path := cfg.Session.DBPath
	if path == "" {
		var err error
		if path, err = session.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve session database path: %w", err)
		}
	}
	return session.OpenSQLite(ctx, path)
}

// newApp wires the configured components. The caller must call close.
func newApp(ctx context.Context, deps Dependencies, flags *rootFlags) (*app, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	root := flags.workspace
	if root == "" {
		if root, err = deps.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	root, err = workspace.CanonicaliseRoot(root)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize workspace root: %w", err)
	}

	p, err := deps.ProviderFactory(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}
	p = provider.WithRetry(p, cfg.Provider.RetryAttempts, time.Duration(cfg.Provider.RetryBaseDelayMs)*time.Millisecond)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName, version, cfg.Telemetry.Insecure)
	if err != nil {
		return nil, err
	}
	emitter := telemetry.Multi(
		telemetry.NewOTelEmitter(telemetry.Meter()),
		telemetry.NewLogEmitter(logger),
	)

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	registry := tool.NewRegistry(file.Tools(cfg)...)
	for _, t := range todo.Tools(todo.NewStore()) {
		registry.Register(t)
	}
	if cfg.Tools.EnableShell {
		registry.Register(shell.New(cfg))
	}

	console := ui.NewConsole(deps.Stdout, deps.StdoutTTY, 0)
	lines := ui.NewLineReader(deps.Stdin)
	var prompter permission.Prompter
	if deps.StdinTTY {
		prompter = ui.NewTeaPrompter(console, deps.Stdin)
	} else {
		prompter = ui.NewLinePrompter(console, lines)
	}

	// Validate has already checked both values.
	mode, _ := permission.ParseMode(cfg.Permission.Mode)
	scope, _ := permission.ParseScope(cfg.Permission.RememberScope)
	gate := permission.NewOrchestrator(
		permission.Config{
			Mode:                 mode,
			AutoApproveReadWrite: cfg.Permission.AutoApproveReadWrite,
			RememberDecisions:    cfg.Permission.RememberDecisions,
			RememberScope:        scope,
			HistorySize:          cfg.Permission.HistorySize,
		},
		permission.NewMemoryStore(cfg.Permission.MaxRememberedPerSession),
		permission.NewInspector(),
		permission.WithPrompter(prompter),
		permission.WithEmitter(emitter),
		permission.WithLogger(logger.Named("permission")),
	)

	logger.Debug("agent ready",
		zap.String("workspace", root),
		zap.String("provider", p.Name()),
		zap.String("mode", string(mode)),
		zap.Strings("tools", registry.Names()),
	)

	return &app{
		cfg:        cfg,
		root:       root,
		logger:     logger,
		store:      store,
		console:    console,
		lines:      lines,
		provider:   p,
		registry:   registry,
		classifier: risk.NewClassifier(cfg.Permission.RiskOverrides),
		gate:       gate,
		emitter:    emitter,
		shutdown:   shutdown,
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close session store failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// options are the generation options for a new conversation.
func (a *app) options() provider.Options {
	prompt := a.cfg.Provider.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf(defaultSystemPrompt, a.root)
	}
	return provider.Options{
		SystemPrompt:    prompt,
		Model:           a.cfg.Provider.Model,
		Temperature:     a.cfg.Provider.Temperature,
		MaxOutputTokens: a.cfg.Provider.MaxOutputTokens,
	}
}

// newSession creates and persists a session titled after its first message.
func (a *app) newSession(ctx context.Context, firstMessage string) (*session.Session, *session.Conversation, error) {
	sess := session.New(title(firstMessage))
	if err := a.store.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return sess, session.NewConversation(sess.ID, a.options()), nil
}

func (a *app) resumeSession(ctx context.Context, id string) (*session.Session, *session.Conversation, error) {
	sess, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load session %s: %w", id, err)
	}
	conv, err := a.store.LoadContext(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	return sess, conv, nil
}

// turn runs one user message through the loop, printing events as they
// arrive, and persists the conversation whatever the outcome.
func (a *app) turn(ctx context.Context, sess *session.Session, conv *session.Conversation, text string) (*loop.Response, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String("session_id", sess.ID),
		attribute.String("provider", a.provider.Name()),
	))
	defer span.End()

	events := make(chan workflow.Event)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.console.Run(events)
	}()

	l := loop.NewLoop(a.provider, a.registry, a.classifier, a.gate, loop.Options{
		MaxIterations: a.cfg.Workflow.MaxIterations,
		MaxToolCalls:  a.cfg.Workflow.MaxToolCalls,
		WorkspaceRoot: a.root,
		Events:        events,
		Emitter:       a.emitter,
		Logger:        a.logger.Named("loop"),
	})
	resp, err := l.Process(ctx, text, conv)
	close(events)
	wg.Wait()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if resp != nil {
		sess.Usage = sess.Usage.Add(resp.Usage)
	}

	// Persist with a fresh context so a cancelled turn still saves its
	// completed steps.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if saveErr := a.save(saveCtx, sess, conv); saveErr != nil {
		return resp, errors.Join(err, fmt.Errorf("%w: %w", errPersist, saveErr))
	}
	return resp, err
}

func (a *app) save(ctx context.Context, sess *session.Session, conv *session.Conversation) error {
	if err := a.store.SaveContext(ctx, sess.ID, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := a.store.Update(ctx, sess); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

const maxTitle = 60

func title(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > maxTitle {
		return string(r[:maxTitle]) + "..."
	}
	return string(r)
}
