// Copyright © 2024 The wat-lsp authors

package lsp

import (
	"strings"

	"github.com/tliron/glsp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/EmNudge/wat-lsp-sub000/analysis"
	"github.com/EmNudge/wat-lsp-sub000/astutil"
	"github.com/EmNudge/wat-lsp-sub000/syntax"
)

// textDocumentFoldingRange handles the textDocument/foldingRange request.
// It returns folding ranges for multi-line module fields, blocks, block
// comments and runs of line comments.
func (s *Server) textDocumentFoldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	span := s.startSpan("textDocument/foldingRange", params.TextDocument.URI)
	defer span.End()

	snap := s.docs.Get(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}

	var ranges []protocol.FoldingRange
	if snap.Tree != nil {
		ranges = collectFoldingRanges(snap.Tree.Root())
	}
	// Fold consecutive comment lines from source text.
	ranges = append(ranges, commentFoldingRanges(string(snap.Source))...)
	return ranges, nil
}

// collectFoldingRanges walks the tree and emits one range per foldable
// node spanning more than one line.  When several nodes start on the same
// line only the outermost folds.
func collectFoldingRanges(root syntax.Node) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	seen := make(map[int]bool)
	astutil.Inspect(root, func(n syntax.Node) bool {
		kind, ok := foldingKind(n)
		if !ok {
			return true
		}
		start, end := n.StartPoint().Row, n.EndPoint().Row
		if end <= start || seen[start] {
			return true
		}
		seen[start] = true
		k := string(kind)
		ranges = append(ranges, protocol.FoldingRange{
			StartLine: safeUint(start),
			EndLine:   safeUint(end),
			Kind:      &k,
		})
		return true
	})
	return ranges
}

func foldingKind(n syntax.Node) (protocol.FoldingRangeKind, bool) {
	kind := n.Kind()
	switch {
	case kind == "comment_block":
		return protocol.FoldingRangeKindComment, true
	case kind == "module", strings.HasPrefix(kind, "module_field_"):
		return protocol.FoldingRangeKindRegion, true
	case analysis.IsBlockNode(n):
		return protocol.FoldingRangeKindRegion, true
	}
	return "", false
}

// commentFoldingRanges detects consecutive lines starting with ";;" and
// produces a folding range for each block of 2+ lines.
func commentFoldingRanges(content string) []protocol.FoldingRange {
	lines := strings.Split(content, "\n")
	var ranges []protocol.FoldingRange

	blockStart := -1
	flush := func(last int) {
		if blockStart >= 0 && last > blockStart {
			kind := string(protocol.FoldingRangeKindComment)
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: safeUint(blockStart),
				EndLine:   safeUint(last),
				Kind:      &kind,
			})
		}
		blockStart = -1
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ";;") {
			if blockStart < 0 {
				blockStart = i
			}
			continue
		}
		flush(i - 1)
	}
	// Handle comment block at end of file.
	flush(len(lines) - 1)
	return ranges
}
