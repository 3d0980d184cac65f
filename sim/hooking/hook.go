// Package hooking provides the instrumentation surface of the simulation
// kernel. A Hookable invokes every registered Hook at well-known positions,
// such as before each step of a run.
package hooking

// HookPos names a site where hooks are invoked. Positions are compared by
// pointer, so each site declares one package-level HookPos.
type HookPos struct {
	Name string
}

func (p *HookPos) String() string {
	return p.Name
}

// HookCtx describes one invocation. What Item and Detail hold depends on Pos
// and is documented next to each position.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is implemented by everything that invokes hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// A Hook observes a Hookable. Hooks run on the goroutine of the Hookable and
// must not block unless they mean to hold it back.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to a Hook. Use NewHookFunc so that every
// registration is a distinct pointer.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f *HookFunc) Func(ctx HookCtx) {
	(*f)(ctx)
}

// NewHookFunc wraps f into a Hook.
func NewHookFunc(f func(ctx HookCtx)) Hook {
	h := HookFunc(f)
	return &h
}

// HookableBase keeps the hook list for types that embed it.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates an empty HookableBase.
func NewHookableBase() *HookableBase {
	return &HookableBase{}
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the registered hooks in registration order.
func (h *HookableBase) Hooks() []Hook {
	return append([]Hook(nil), h.hooks...)
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, registered := range h.hooks {
		if registered == hook {
			panic("hooking: hook registered twice")
		}
	}

	h.hooks = append(h.hooks, hook)
}

// InvokeHook calls the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
