// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sanitize turns raw causal-LM output into a bounded, well-formed
// assistant reply. Small local models echo the prompt, hallucinate extra
// conversation turns, and think out loud; every transform here exists to
// undo one of those habits. Clean is pure and deterministic, so behavior
// changes only when the rules below change.
package sanitize

import (
	"regexp"
	"strings"
)

const assistantMarker = "Assistant:"

// maxSentences bounds the reply length.
const maxSentences = 3

var (
	// Markup-tag-like fragments, e.g. leftover chat-template tokens.
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	// A hallucinated next turn begins at the first of these markers.
	turnMarkerPattern = regexp.MustCompile(`\b(User:|Assistant:)`)

	// Thinking-out-loud openers. The list is load-bearing: adding or
	// removing a marker changes which replies get cut, so keep it in
	// sync with the distilled-model behavior it was tuned against.
	fillerPattern = regexp.MustCompile(
		`(?is)\b(Hmm|Wait|Let me think|I think|Maybe|Possibly|Alternatively|Should I|Now I need to|So|Alright|Anyway)\b.*`)
)

// Clean post-processes a raw generation into a client-ready reply.
// It never fails and never returns an empty string: fully degenerate
// input collapses to a single period.
func Clean(raw string) string {
	response := raw

	// The model echoes the rendered context, so the reply is whatever
	// follows the last Assistant marker.
	if idx := strings.LastIndex(response, assistantMarker); idx >= 0 {
		response = response[idx+len(assistantMarker):]
	}
	response = strings.TrimSpace(response)

	response = tagPattern.ReplaceAllString(response, "")

	// Cut off anything after the next user message or hallucinated turn.
	if loc := turnMarkerPattern.FindStringIndex(response); loc != nil {
		response = response[:loc[0]]
	}
	response = strings.TrimSpace(response)

	response = strings.TrimSpace(fillerPattern.ReplaceAllString(response, ""))

	sentences := splitSentences(response)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	response = strings.TrimSpace(strings.Join(sentences, " "))

	if !strings.HasSuffix(response, ".") &&
		!strings.HasSuffix(response, "!") &&
		!strings.HasSuffix(response, "?") {
		response += "."
	}

	response = strings.TrimSpace(strings.ReplaceAll(response, "\n", " "))
	return response
}

// splitSentences splits on runs of spaces that follow sentence-terminal
// punctuation, keeping the punctuation with its sentence.
func splitSentences(s string) []string {
	if s == "" {
		return nil
	}
	var sentences []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '.' && s[i] != '!' && s[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(s) && s[j] == ' ' {
			j++
		}
		if j == i+1 || j == len(s) {
			continue
		}
		sentences = append(sentences, s[start:i+1])
		start = j
		i = j - 1
	}
	if start < len(s) {
		sentences = append(sentences, s[start:])
	}
	return sentences
}
