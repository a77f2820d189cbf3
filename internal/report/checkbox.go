package report

import "strings"

// SetChecked rewrites the checkbox of every ranked entry linking to url.
// It reports whether any entry matched.
func SetChecked(text, url string, checked bool) (string, bool) {
	box := "- [ ] "
	if checked {
		box = "- [x] "
	}

	lines := strings.Split(text, "\n")
	var state State
	found := false
	for i, line := range lines {
		next, heading := Transition(state, line)
		if heading {
			state = next
			continue
		}
		if state.Kind != InRank || !entryRe.MatchString(line) {
			continue
		}
		m := linkRe.FindStringSubmatch(line)
		if m == nil || unescapeLink(m[2]) != url {
			continue
		}
		lines[i] = box + line[len(box):]
		found = true
	}
	return strings.Join(lines, "\n"), found
}
