package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add      func(AddArgs) (Result, error)
	Done     func(TargetArgs) (Result, error)
	Archive  func(TargetArgs) (Result, error)
	Delete   func(TargetArgs) (Result, error)
	Schedule func(TargetArgs) (Result, error)
	Confirm  func(ConfirmArgs) (Result, error)
	Show     func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeDone, TypeArchive, TypeDelete, TypeSchedule:
		h := targetHandler(cmd.Type, handlers)
		if h == nil {
			return Result{}, missing(cmd.Type)
		}
		return h(*cmd.Target)
	case TypeConfirm:
		if handlers.Confirm == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Confirm(*cmd.Confirm)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func targetHandler(t Type, h Handlers) func(TargetArgs) (Result, error) {
	switch t {
	case TypeDone:
		return h.Done
	case TypeArchive:
		return h.Archive
	case TypeDelete:
		return h.Delete
	case TypeSchedule:
		return h.Schedule
	default:
		return nil
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
