package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type declaration struct {
	prop  string
	value string
}

// parseStyle splits an inline style attribute into ordered declarations.
func parseStyle(attr string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(attr, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		decls = append(decls, declaration{prop: prop, value: value})
	}
	return decls
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// Style returns the inline value of prop on the first element of sel.
func Style(sel *goquery.Selection, prop string) string {
	attr, _ := sel.Attr("style")
	prop = strings.ToLower(prop)
	value := ""
	for _, d := range parseStyle(attr) {
		if d.prop == prop {
			value = d.value
		}
	}
	return value
}

// SetStyle sets an inline style property on every element of sel, keeping
// other declarations. It reports whether any element changed.
func SetStyle(sel *goquery.Selection, prop, value string) bool {
	prop = strings.ToLower(prop)
	changed := false
	sel.Each(func(_ int, el *goquery.Selection) {
		attr, _ := el.Attr("style")
		decls := parseStyle(attr)
		found := false
		for i := range decls {
			if decls[i].prop != prop {
				continue
			}
			found = true
			if decls[i].value != value {
				decls[i].value = value
				changed = true
			}
		}
		if !found {
			decls = append(decls, declaration{prop: prop, value: value})
			changed = true
		}
		if out := formatStyle(decls); out != attr {
			el.SetAttr("style", out)
		}
	})
	return changed
}

// SetAttr sets attr on every element of sel and reports whether any value changed.
func SetAttr(sel *goquery.Selection, attr, value string) bool {
	changed := false
	sel.Each(func(_ int, el *goquery.Selection) {
		if cur, ok := el.Attr(attr); ok && cur == value {
			return
		}
		el.SetAttr(attr, value)
		changed = true
	})
	return changed
}

// SetText replaces the text of the first element of sel and reports whether it changed.
func SetText(sel *goquery.Selection, text string) bool {
	first := sel.First()
	if first.Length() == 0 || first.Text() == text {
		return false
	}
	first.SetText(text)
	return true
}
