package prompt

import (
	"fmt"
	"strings"
)

// fieldLabel renders a field name as the label used on the wire, e.g.
// "improved_prompt" -> "Improved Prompt".
func fieldLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// RenderSystem builds the system message for a signature: the instruction
// description plus the exact output format the parser expects.
func RenderSystem(sig Signature) string {
	var b strings.Builder
	b.WriteString(sig.Description)
	b.WriteString("\n\nRespond with exactly the following sections, each starting on its own line:\n")
	for _, name := range sig.OutputNames() {
		fmt.Fprintf(&b, "%s: <%s>\n", fieldLabel(name), name)
	}
	b.WriteString("Do not add any other sections or commentary.")
	return b.String()
}

// RenderUser builds the user message from the ordered input field values.
// Order is preserved exactly as given; the model is order-sensitive.
func RenderUser(names, values []string) string {
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s:\n%s", fieldLabel(name), values[i])
	}
	return b.String()
}

// ParseOutputs extracts the declared output fields from raw model text.
// Parsing is structural: a line beginning with a declared field label opens
// that field, and subsequent lines belong to it until the next label. The
// bool result reports whether every declared field was found non-empty;
// callers treat false as a malformed response.
func ParseOutputs(sig Signature, raw string) (map[string]string, bool) {
	labels := make(map[string]string, len(sig.OutputNames()))
	for _, name := range sig.OutputNames() {
		labels[strings.ToLower(fieldLabel(name))] = name
	}

	fields := make(map[string]string, len(labels))
	var current string
	var buf strings.Builder

	flush := func() {
		if current != "" {
			fields[current] = strings.TrimSpace(buf.String())
		}
		buf.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if name, rest, ok := matchLabel(trimmed, labels); ok {
			flush()
			current = name
			buf.WriteString(rest)
			buf.WriteString("\n")
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()

	for _, name := range sig.OutputNames() {
		if strings.TrimSpace(fields[name]) == "" {
			return fields, false
		}
	}
	return fields, true
}

// matchLabel checks whether line opens one of the declared output sections.
// Labels match case-insensitively, with or without markdown bold markers.
func matchLabel(line string, labels map[string]string) (string, string, bool) {
	stripped := strings.TrimLeft(line, "*# ")
	idx := strings.Index(stripped, ":")
	if idx < 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(strings.TrimRight(stripped[:idx], "*")))
	name, ok := labels[label]
	if !ok {
		return "", "", false
	}
	rest := strings.TrimSpace(stripped[idx+1:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "**"))
	return name, rest, true
}
