package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Action names are the literal tokens the game understands.
type Action string

const (
	ActionLeft   Action = "LEFT"
	ActionRight  Action = "RIGHT"
	ActionJump   Action = "JUMP"
	ActionPickup Action = "PICKUP"
	ActionDrop   Action = "DROP"
	ActionShoot  Action = "SHOOT"
)

// MoveActions carry an amount between 0 and 1; the rest are bare triggers.
func (a Action) Scaled() bool {
	switch a {
	case ActionLeft, ActionRight, ActionJump:
		return true
	}
	return false
}

type Step struct {
	Action Action
	Amount float64
}

// Command is an ordered list of steps sent to the game as one line.
type Command []Step

func (c Command) Encode() string {
	parts := make([]string, 0, len(c))
	for _, s := range c {
		if s.Action.Scaled() {
			parts = append(parts, fmt.Sprintf("%s:%.2f", s.Action, s.Amount))
		} else {
			parts = append(parts, string(s.Action))
		}
	}
	return strings.Join(parts, ";")
}

func (c Command) Empty() bool {
	return len(c) == 0
}

// ParseCommand decodes an encoded command line. It is the inverse of Encode
// and exists for the recorder's query surface and for tests.
func ParseCommand(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var cmd Command
	for _, part := range strings.Split(raw, ";") {
		token, amountStr, hasAmount := strings.Cut(part, ":")
		action := Action(token)
		switch action {
		case ActionLeft, ActionRight, ActionJump:
			if !hasAmount {
				return nil, fmt.Errorf("action %s requires an amount", action)
			}
			amount, err := strconv.ParseFloat(amountStr, 64)
			if err != nil {
				return nil, fmt.Errorf("action %s: bad amount %q", action, amountStr)
			}
			if amount < 0 || amount > 1 {
				return nil, fmt.Errorf("action %s: amount %v out of range", action, amount)
			}
			cmd = append(cmd, Step{Action: action, Amount: amount})
		case ActionPickup, ActionDrop, ActionShoot:
			if hasAmount {
				return nil, fmt.Errorf("action %s takes no amount", action)
			}
			cmd = append(cmd, Step{Action: action})
		default:
			return nil, fmt.Errorf("unknown action %q", token)
		}
	}
	return cmd, nil
}

// Builder accumulates steps fluently. Validation errors stick and surface
// from Build, so call chains stay clean.
type Builder struct {
	steps []Step
	err   error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) scaled(action Action, amount float64) *Builder {
	if b.err != nil {
		return b
	}
	if amount < 0 || amount > 1 {
		b.err = fmt.Errorf("%s amount must be between 0.0 and 1.0, got %v", action, amount)
		return b
	}
	b.steps = append(b.steps, Step{Action: action, Amount: amount})
	return b
}

func (b *Builder) trigger(action Action) *Builder {
	if b.err != nil {
		return b
	}
	b.steps = append(b.steps, Step{Action: action})
	return b
}

func (b *Builder) Left(amount float64) *Builder  { return b.scaled(ActionLeft, amount) }
func (b *Builder) Right(amount float64) *Builder { return b.scaled(ActionRight, amount) }
func (b *Builder) Jump(amount float64) *Builder  { return b.scaled(ActionJump, amount) }
func (b *Builder) Pickup() *Builder              { return b.trigger(ActionPickup) }
func (b *Builder) Drop() *Builder                { return b.trigger(ActionDrop) }
func (b *Builder) Shoot() *Builder               { return b.trigger(ActionShoot) }

func (b *Builder) Clear() *Builder {
	b.steps = nil
	b.err = nil
	return b
}

func (b *Builder) Build() (Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Command(append([]Step(nil), b.steps...)), nil
}
