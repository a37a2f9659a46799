package typst

import "strings"

// legacyCallouts maps the block markup older documents used for callouts to
// the admonition function.
var legacyCallouts = strings.NewReplacer(
	`<!--raw-typst #block(fill: luma(245), inset: 8pt, radius: 6pt, stroke: 0.5pt + luma(200))`,
	`<!--raw-typst #admonition("note")`,
	`<!--raw-typst #block(fill: rgb(224,242,254), inset: 8pt, radius: 6pt, stroke: 0.5pt + rgb(186,230,253))`,
	`<!--raw-typst #admonition("info")`,
	`<!--raw-typst #block(fill: rgb(220,252,231), inset: 8pt, radius: 6pt, stroke: 0.5pt + rgb(187,247,208))`,
	`<!--raw-typst #admonition("tip")`,
	`<!--raw-typst #block(fill: rgb(254,249,195), inset: 8pt, radius: 6pt, stroke: 0.5pt + rgb(253,224,71))`,
	`<!--raw-typst #admonition("warning")`,
)

// AdmonitionKind canonicalises a GitHub-style alert name.
func AdmonitionKind(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "warning", "warn", "danger", "caution":
		return "warning"
	case "tip", "success":
		return "tip"
	case "info", "information":
		return "info"
	case "important":
		return "important"
	default:
		return "note"
	}
}

// transformAdmonitions rewrites "> [!KIND]" blockquotes into admonition
// calls. It returns the rewritten text and, for every output line, the
// source line it came from.
func transformAdmonitions(src string) (string, []int) {
	lines := splitLines(src)

	var b strings.Builder
	b.Grow(len(src) + 128)
	lineMap := make([]int, 0, len(lines)+8)
	emit := func(s string, from int) {
		b.WriteString(s)
		lineMap = append(lineMap, from)
	}

	for i := 0; i < len(lines); {
		body, hadNewline := strings.CutSuffix(lines[i], "\n")
		kind, rest, indent, ok := admonitionHeader(body)
		if !ok {
			emit(lines[i], i)
			i++
			continue
		}

		emit(indent+`<!--raw-typst #admonition("`+kind+`")[ -->`+"\n", i)
		if rest != "" {
			emit(rest+"\n", i)
		}
		last, lastNewline := i, hadNewline
		for i++; i < len(lines); i++ {
			content, nl := strings.CutSuffix(lines[i], "\n")
			trimmed := strings.TrimLeft(content, " \t")
			if !strings.HasPrefix(trimmed, ">") {
				break
			}
			emit(strings.TrimLeft(trimmed[1:], " ")+"\n", i)
			last, lastNewline = i, nl
		}

		closing := indent + "<!--raw-typst ] -->"
		if lastNewline || i < len(lines) {
			closing += "\n"
		}
		emit(closing, last)
	}
	return b.String(), lineMap
}

// admonitionHeader parses "> [!KIND] rest".
func admonitionHeader(line string) (kind, rest, indent string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, ">") {
		return "", "", "", false
	}
	indent = line[:len(line)-len(trimmed)]
	after := strings.TrimLeft(trimmed[1:], " \t")
	after, found := strings.CutPrefix(after, "[!")
	if !found {
		return "", "", "", false
	}
	end := strings.IndexByte(after, ']')
	if end < 0 {
		return "", "", "", false
	}
	raw := strings.TrimSpace(after[:end])
	if raw == "" {
		return "", "", "", false
	}
	return AdmonitionKind(raw), strings.TrimLeft(after[end+1:], " \t"), indent, true
}

// splitLines splits after every newline. A trailing newline does not
// produce an empty final line.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
