package parse

import (
	"regexp"
	"strings"

	"github.com/hyperjump/ronbun/internal/models"
)

// equationRE matches display equations delimited by $$ ... $$, possibly
// spanning lines.
var equationRE = regexp.MustCompile(`(?s)\$\$.+?\$\$`)

// SegmentBlocks splits page text into an ordered block sequence. Display
// equations and markdown tables become atomic blocks; everything else is
// prose. The concatenation of block texts preserves the page's content order.
func SegmentBlocks(text string) []models.Block {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var blocks []models.Block
	last := 0
	for _, loc := range equationRE.FindAllStringIndex(text, -1) {
		blocks = append(blocks, segmentTables(text[last:loc[0]])...)
		blocks = append(blocks, models.Block{
			Type: models.BlockEquation,
			Text: strings.TrimSpace(text[loc[0]:loc[1]]),
		})
		last = loc[1]
	}
	blocks = append(blocks, segmentTables(text[last:])...)
	return blocks
}

// segmentTables splits equation-free text into prose and table blocks. A
// table is a run of two or more consecutive pipe-delimited lines; a single
// stray pipe line stays prose.
func segmentTables(text string) []models.Block {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var (
		blocks []models.Block
		prose  []string
		table  []string
	)
	flushProse := func() {
		if s := strings.TrimSpace(strings.Join(prose, "\n")); s != "" {
			blocks = append(blocks, models.Block{Type: models.BlockProse, Text: s})
		}
		prose = prose[:0]
	}
	flushTable := func() {
		if len(table) >= 2 {
			flushProse()
			blocks = append(blocks, models.Block{
				Type: models.BlockTable,
				Text: strings.TrimSpace(strings.Join(table, "\n")),
			})
		} else {
			prose = append(prose, table...)
		}
		table = table[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if isTableLine(line) {
			table = append(table, line)
			continue
		}
		flushTable()
		prose = append(prose, line)
	}
	flushTable()
	flushProse()
	return blocks
}

// isTableLine reports whether line looks like a markdown table row:
// starts with a pipe and contains at least one more.
func isTableLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}
