package services

import "context"

// CommandGate decides whether an actor may run an administrative command.
type CommandGate interface {
	// Authorize may suspend on a live role lookup.
	Authorize(ctx context.Context, actor Actor, required Level) bool
	// AuthorizeNow uses only event metadata and never blocks on I/O.
	AuthorizeNow(actor Actor, required Level) bool
	Level(ctx context.Context, actor Actor) Level
	LevelNow(actor Actor) Level
}

type commandGate struct {
	live         PermissionResolver
	conservative PermissionResolver
}

// NewCommandGate pairs the live resolver with the conservative strategy. A nil
// live resolver makes both paths conservative.
func NewCommandGate(live PermissionResolver) CommandGate {
	conservative := NewConservativePermissionResolver()
	if live == nil {
		live = conservative
	}
	return &commandGate{live: live, conservative: conservative}
}

func (g *commandGate) Authorize(ctx context.Context, actor Actor, required Level) bool {
	if required <= LevelUser {
		return true
	}
	return g.live.Resolve(ctx, actor) >= required
}

func (g *commandGate) AuthorizeNow(actor Actor, required Level) bool {
	if required <= LevelUser {
		return true
	}
	return g.conservative.Resolve(context.Background(), actor) >= required
}

func (g *commandGate) Level(ctx context.Context, actor Actor) Level {
	return g.live.Resolve(ctx, actor)
}

func (g *commandGate) LevelNow(actor Actor) Level {
	return g.conservative.Resolve(context.Background(), actor)
}
