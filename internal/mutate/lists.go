package mutate

import (
	"fmt"
	"slices"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region len
// Len returns the current length of a record list.
func Len(r report.Report, list List) (int, error) {
	switch list {
	case Legislation:
		return len(r.Legislation), nil
	case ProjectActivity:
		return len(r.ProjectActivity), nil
	case LdprOrders:
		return len(r.LdprOrders), nil
	}
	return 0, unknownField(Section(list), "")
}
// #endregion len

// #region set-item-field
// SetListItemField replaces one string field of one element of a record list.
// index must be within the current bounds; an out-of-range index panics.
func SetListItemField(r report.Report, list List, index int, field, value string) (report.Report, error) {
	n, err := Len(r, list)
	if err != nil {
		return r, err
	}
	mustIndex(string(list), index, n)
	if list == Legislation && field == "status" {
		st, err := parseStatus(value)
		if err != nil {
			return r, err
		}
		value = string(st)
	}

	out := r.Clone()
	var fields map[string]*string
	switch list {
	case Legislation:
		it := &out.Legislation[index]
		fields = map[string]*string{
			"title":            &it.Title,
			"summary":          &it.Summary,
			"status":           (*string)(&it.Status),
			"rejection_reason": &it.RejectionReason,
		}
	case ProjectActivity:
		it := &out.ProjectActivity[index]
		fields = map[string]*string{"name": &it.Name, "result": &it.Result}
	case LdprOrders:
		it := &out.LdprOrders[index]
		fields = map[string]*string{"instruction": &it.Instruction, "action": &it.Action}
	}
	p := fields[field]
	if p == nil {
		return r, unknownField(Section(list), field)
	}
	*p = value
	return out, nil
}

// parseStatus takes a status value or its display label.
func parseStatus(v string) (report.Status, error) {
	st := report.ParseStatus(v)
	if !st.Known() {
		return "", fmt.Errorf("%w: legislation.status unknown value %q", ErrValueType, v)
	}
	return st, nil
}
// #endregion set-item-field

// #region append-remove
// AppendListItem appends item to a record list. A nil item appends the
// default element for that list.
func AppendListItem(r report.Report, list List, item any) (report.Report, error) {
	out := r.Clone()
	switch list {
	case Legislation:
		it := report.NewLegislation()
		if item != nil {
			l, ok := item.(report.Legislation)
			if !ok {
				return r, wrongType(Section(list), "", item)
			}
			st, err := parseStatus(string(l.Status))
			if err != nil {
				return r, err
			}
			l.Status = st
			l.Links = append([]string{}, l.Links...)
			it = l
		}
		out.Legislation = append(out.Legislation, it)
	case ProjectActivity:
		it := report.NewProjectActivity()
		if item != nil {
			p, ok := item.(report.ProjectActivity)
			if !ok {
				return r, wrongType(Section(list), "", item)
			}
			it = p
		}
		out.ProjectActivity = append(out.ProjectActivity, it)
	case LdprOrders:
		it := report.NewLdprOrder()
		if item != nil {
			o, ok := item.(report.LdprOrder)
			if !ok {
				return r, wrongType(Section(list), "", item)
			}
			it = o
		}
		out.LdprOrders = append(out.LdprOrders, it)
	default:
		return r, unknownField(Section(list), "")
	}
	return out, nil
}

// RemoveListItem deletes the element at index, keeping the order of the rest.
func RemoveListItem(r report.Report, list List, index int) (report.Report, error) {
	n, err := Len(r, list)
	if err != nil {
		return r, err
	}
	mustIndex(string(list), index, n)

	out := r.Clone()
	switch list {
	case Legislation:
		out.Legislation = slices.Delete(out.Legislation, index, index+1)
	case ProjectActivity:
		out.ProjectActivity = slices.Delete(out.ProjectActivity, index, index+1)
	case LdprOrders:
		out.LdprOrders = slices.Delete(out.LdprOrders, index, index+1)
	}
	return out, nil
}
// #endregion append-remove

// #region item-links
// SetListItemLink replaces one link of a legislation element.
func SetListItemLink(r report.Report, list List, index, link int, value string) (report.Report, error) {
	if list != Legislation {
		return r, unknownField(Section(list), "links")
	}
	mustIndex(string(list), index, len(r.Legislation))
	mustIndex(string(list)+".links", link, len(r.Legislation[index].Links))

	out := r.Clone()
	out.Legislation[index].Links[link] = value
	return out, nil
}

// AppendListItemLink adds a blank link row to a legislation element.
func AppendListItemLink(r report.Report, list List, index int) (report.Report, error) {
	if list != Legislation {
		return r, unknownField(Section(list), "links")
	}
	mustIndex(string(list), index, len(r.Legislation))

	out := r.Clone()
	out.Legislation[index].Links = append(out.Legislation[index].Links, "")
	return out, nil
}

// RemoveListItemLink deletes one link of a legislation element.
func RemoveListItemLink(r report.Report, list List, index, link int) (report.Report, error) {
	if list != Legislation {
		return r, unknownField(Section(list), "links")
	}
	mustIndex(string(list), index, len(r.Legislation))
	mustIndex(string(list)+".links", link, len(r.Legislation[index].Links))

	out := r.Clone()
	l := &out.Legislation[index]
	l.Links = slices.Delete(l.Links, link, link+1)
	return out, nil
}
// #endregion item-links
