package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/taskngo/internal/model"
)

type Type string

const (
	TypeAdd      Type = "add"
	TypeDone     Type = "done"
	TypeArchive  Type = "archive"
	TypeDelete   Type = "delete"
	TypeSchedule Type = "schedule"
	TypeConfirm  Type = "confirm"
	TypeShow     Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs come from `add <text> @ <due> [!priority]`.
type AddArgs struct {
	Text     string
	Due      string
	Priority model.Priority
}

// TargetArgs name a task by its 1-based position in the visible list or by id.
type TargetArgs struct {
	Target string
}

type ConfirmArgs struct {
	Target    string
	Completed bool
}

type ShowArgs struct {
	Category model.Category
}

type Command struct {
	Type    Type
	Raw     string
	Add     *AddArgs
	Target  *TargetArgs
	Confirm *ConfirmArgs
	Show    *ShowArgs
}

var aliases = map[string]Type{
	"new":      TypeAdd,
	"complete": TypeDone,
	"rm":       TypeDelete,
	"remind":   TypeSchedule,
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]
	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	switch typ {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone, TypeArchive, TypeDelete, TypeSchedule:
		return parseTarget(input, typ, args)
	case TypeConfirm:
		return parseConfirm(input, args)
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	priority := model.PriorityMedium
	words := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "!") && len(arg) > 1 {
			p, err := model.ParsePriority(arg[1:])
			if err != nil {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown priority %q", arg[1:])}
			}
			priority = p
			continue
		}
		words = append(words, arg)
	}

	text, due, found := strings.Cut(strings.Join(words, " "), "@")
	text = strings.TrimSpace(text)
	due = strings.TrimSpace(due)
	if text == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a task text"}
	}
	if !found || due == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a due time after @"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Text: text, Due: due, Priority: priority}}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires one task number or id", typ)}
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{Target: args[0]}}, nil
}

func parseConfirm(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "confirm requires a task and yes or no"}
	}
	var completed bool
	switch strings.ToLower(args[1]) {
	case "y", "yes":
		completed = true
	case "n", "no":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("confirm answer must be yes or no, got %q", args[1])}
	}
	return Command{Type: TypeConfirm, Raw: raw, Confirm: &ConfirmArgs{Target: args[0], Completed: completed}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a category"}
	}
	cat, err := model.ParseCategory(args[0])
	if err != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Category: cat}}, nil
}
