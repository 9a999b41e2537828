package mutate

import (
	"slices"

	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region resolve
// stringList resolves a list field of a section. Plain string lists come back
// in plain, {text, links} lists in entries; exactly one is non-nil.
func stringList(r *report.Report, section Section, subfield string) (plain *[]string, entries *[]report.Entry, err error) {
	switch {
	case section == GeneralInfo && subfield == "links":
		return &r.GeneralInfo.Links, nil, nil
	case section == GeneralInfo && subfield == "committees":
		return &r.GeneralInfo.Committees, nil, nil
	case section == CitizenRequests && subfield == "examples":
		return nil, &r.CitizenRequests.Examples, nil
	case section == SvoSupport && subfield == "projects":
		return nil, &r.SvoSupport.Projects, nil
	}
	return nil, nil, unknownField(section, subfield)
}

func listName(section Section, subfield string) string {
	return string(section) + "." + subfield
}
// #endregion resolve

// #region set
// SetStringListItem replaces one element of a string list. For {text, links}
// lists it sets the element's text, or with a sub-index the link at links[sub].
func SetStringListItem(r report.Report, section Section, subfield string, index int, value string, sub ...int) (report.Report, error) {
	out := r.Clone()
	plain, entries, err := stringList(&out, section, subfield)
	if err != nil {
		return r, err
	}
	if plain != nil {
		if len(sub) > 0 {
			return r, unknownField(section, subfield+".links")
		}
		mustIndex(listName(section, subfield), index, len(*plain))
		(*plain)[index] = value
		return out, nil
	}

	mustIndex(listName(section, subfield), index, len(*entries))
	e := &(*entries)[index]
	if len(sub) == 0 {
		e.Text = value
		return out, nil
	}
	mustIndex(listName(section, subfield)+".links", sub[0], len(e.Links))
	e.Links[sub[0]] = value
	return out, nil
}
// #endregion set

// #region append
// AppendStringListItem appends a blank element to a string list. With an
// index on a {text, links} list it appends a blank link to that element.
func AppendStringListItem(r report.Report, section Section, subfield string, index ...int) (report.Report, error) {
	out := r.Clone()
	plain, entries, err := stringList(&out, section, subfield)
	if err != nil {
		return r, err
	}
	if plain != nil {
		if len(index) > 0 {
			return r, unknownField(section, subfield+".links")
		}
		*plain = append(*plain, "")
		return out, nil
	}

	if len(index) == 0 {
		*entries = append(*entries, report.NewEntry())
		return out, nil
	}
	mustIndex(listName(section, subfield), index[0], len(*entries))
	e := &(*entries)[index[0]]
	e.Links = append(e.Links, "")
	return out, nil
}
// #endregion append

// #region remove
// RemoveStringListItem deletes one element of a string list, or with a
// sub-index one link of a {text, links} element.
func RemoveStringListItem(r report.Report, section Section, subfield string, index int, sub ...int) (report.Report, error) {
	out := r.Clone()
	plain, entries, err := stringList(&out, section, subfield)
	if err != nil {
		return r, err
	}
	if plain != nil {
		if len(sub) > 0 {
			return r, unknownField(section, subfield+".links")
		}
		mustIndex(listName(section, subfield), index, len(*plain))
		*plain = slices.Delete(*plain, index, index+1)
		return out, nil
	}

	mustIndex(listName(section, subfield), index, len(*entries))
	if len(sub) == 0 {
		*entries = slices.Delete(*entries, index, index+1)
		return out, nil
	}
	e := &(*entries)[index]
	mustIndex(listName(section, subfield)+".links", sub[0], len(e.Links))
	e.Links = slices.Delete(e.Links, sub[0], sub[0]+1)
	return out, nil
}
// #endregion remove
