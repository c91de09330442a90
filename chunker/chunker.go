// Package chunker splits raw document text into overlapping fragments bounded
// by a target size. Paragraphs are the primary unit; oversized paragraphs fall
// back to sentence granularity.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split divides text into chunks of at most roughly size characters. When a
// chunk is flushed the next one is seeded with the last overlap characters of
// the flushed text. Empty or whitespace-only input yields no chunks. Output
// depends only on the input and the two parameters.
func Split(text string, size, overlap int) []string {
	var chunks []string
	var current string

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if runeLen(current)+runeLen(para) > size && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = tail(current, overlap)
		}

		if runeLen(para) > size {
			for _, sentence := range splitSentences(para) {
				if runeLen(current)+runeLen(sentence) > size && current != "" {
					chunks = append(chunks, strings.TrimSpace(current))
					current = tail(current, overlap)
				}
				current += sentence + " "
			}
		} else {
			current += para + "\n\n"
		}
	}

	if rest := strings.TrimSpace(current); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// splitSentences breaks a paragraph after '.', '!' or '?' followed by
// whitespace. The separating whitespace is dropped, punctuation stays with its
// sentence.
func splitSentences(para string) []string {
	runes := []rune(para)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// runeLen counts characters, not bytes, so accented text chunks the same as
// plain ASCII.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// tail returns the last n runes of s, used to carry overlap into the next
// chunk.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
