package view

import (
	"fmt"

	"monthcal/internal/model"
)

// DialogMode is the event editor's current screen. The set of
// implementations is closed: ListMode, NewMode, EditMode and DeleteMode.
type DialogMode interface {
	dialogMode()
}

// ListMode shows the events of the selected day.
type ListMode struct{}

// NewMode shows the creation form.
type NewMode struct{}

// EditMode edits a local event.
type EditMode struct {
	Event model.Event
}

// DeleteMode asks for confirmation before deleting ID.
type DeleteMode struct {
	ID string
}

func (ListMode) dialogMode()   {}
func (NewMode) dialogMode()    {}
func (EditMode) dialogMode()   {}
func (DeleteMode) dialogMode() {}

// ModeName returns "list", "new", "edit" or "delete".
func ModeName(m DialogMode) string {
	switch m.(type) {
	case ListMode:
		return "list"
	case NewMode:
		return "new"
	case EditMode:
		return "edit"
	case DeleteMode:
		return "delete"
	}
	panic(fmt.Sprintf("view: unhandled dialog mode %T", m))
}
