package actions

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
)

// Registry maps action-type identifiers to implementations. It is an
// explicit object handed to the components that consume it, not a process
// global.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

func (r *Registry) Register(a Action) error {
	if a == nil {
		return fmt.Errorf("nil action")
	}
	t := a.Type()
	if t == "" {
		return fmt.Errorf("action Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[t]; exists {
		return fmt.Errorf("action already registered for action_type=%s", t)
	}
	r.actions[t] = a
	return nil
}

func (r *Registry) Get(actionType string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[actionType]
	return a, ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for t := range r.actions {
		out = append(out, t)
	}
	return out
}

// BuiltinDeps carries the collaborators the built-in actions need.
type BuiltinDeps struct {
	Documents  repos.DocumentRepo
	Launcher   LaunchEnqueuer
	Messenger  Messenger
	HTTPClient *http.Client
	Log        *logger.Logger
}

// RegisterBuiltins registers the built-in action set. Called once at
// startup.
func RegisterBuiltins(reg *Registry, deps BuiltinDeps) error {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	builtins := []Action{
		&DocumentEditAction{documents: deps.Documents},
		&DocumentTypeChangeAction{documents: deps.Documents},
		&WorkflowLaunchAction{launcher: deps.Launcher},
		&HTTPRequestAction{client: client},
		&MessageSendAction{messenger: deps.Messenger},
	}
	for _, a := range builtins {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}
