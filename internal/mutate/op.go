package mutate

import (
	"errors"
	"fmt"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// ErrBadOp is returned by Apply for an operation with missing or unknown parts.
var ErrBadOp = errors.New("invalid operation")

// #region op
// Kind names one edit operation.
type Kind string

const (
	OpSetField             Kind = "set_field"
	OpSetListItemField     Kind = "set_list_item_field"
	OpAppendListItem       Kind = "append_list_item"
	OpRemoveListItem       Kind = "remove_list_item"
	OpSetStringListItem    Kind = "set_string_list_item"
	OpAppendStringListItem Kind = "append_string_list_item"
	OpRemoveStringListItem Kind = "remove_string_list_item"
	OpSetListItemLink      Kind = "set_list_item_link"
	OpAppendListItemLink   Kind = "append_list_item_link"
	OpRemoveListItemLink   Kind = "remove_list_item_link"
)

// Op is a serializable edit. Section/List name the target, Field the key or
// subfield, Index and Sub the element and link positions.
type Op struct {
	Kind    Kind   `json:"op"`
	Section string `json:"section,omitempty"`
	List    string `json:"list,omitempty"`
	Field   string `json:"field,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Sub     *int   `json:"sub,omitempty"`
	Value   string `json:"value,omitempty"`
}

// At returns a pointer to i, for building ops in code.
func At(i int) *int { return &i }
// #endregion op

// #region apply
// Apply runs op against r. Unlike the primitive operations it never panics on
// an out-of-range index: that is reported as ErrIndexOutOfRange and r is
// returned unchanged.
func Apply(r report.Report, op Op) (out report.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			re, ok := p.(rangeError)
			if !ok {
				panic(p)
			}
			out, err = r, fmt.Errorf("%w: %v", ErrIndexOutOfRange, re)
		}
	}()

	section := Section(op.Section)
	list := List(op.List)

	switch op.Kind {
	case OpSetField:
		return SetField(r, section, op.Field, op.Value)
	case OpSetListItemField:
		if op.Index == nil {
			return r, missing(op, "index")
		}
		return SetListItemField(r, list, *op.Index, op.Field, op.Value)
	case OpAppendListItem:
		return AppendListItem(r, list, nil)
	case OpRemoveListItem:
		if op.Index == nil {
			return r, missing(op, "index")
		}
		return RemoveListItem(r, list, *op.Index)
	case OpSetStringListItem:
		if op.Index == nil {
			return r, missing(op, "index")
		}
		return SetStringListItem(r, section, op.Field, *op.Index, op.Value, subs(op)...)
	case OpAppendStringListItem:
		if op.Index == nil {
			return AppendStringListItem(r, section, op.Field)
		}
		return AppendStringListItem(r, section, op.Field, *op.Index)
	case OpRemoveStringListItem:
		if op.Index == nil {
			return r, missing(op, "index")
		}
		return RemoveStringListItem(r, section, op.Field, *op.Index, subs(op)...)
	case OpSetListItemLink:
		if op.Index == nil || op.Sub == nil {
			return r, missing(op, "index and sub")
		}
		return SetListItemLink(r, list, *op.Index, *op.Sub, op.Value)
	case OpAppendListItemLink:
		if op.Index == nil {
			return r, missing(op, "index")
		}
		return AppendListItemLink(r, list, *op.Index)
	case OpRemoveListItemLink:
		if op.Index == nil || op.Sub == nil {
			return r, missing(op, "index and sub")
		}
		return RemoveListItemLink(r, list, *op.Index, *op.Sub)
	}
	return r, fmt.Errorf("%w: unknown op %q", ErrBadOp, op.Kind)
}

func subs(op Op) []int {
	if op.Sub == nil {
		return nil
	}
	return []int{*op.Sub}
}

func missing(op Op, what string) error {
	return fmt.Errorf("%w: %s requires %s", ErrBadOp, op.Kind, what)
}
// #endregion apply
